package validator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stratum/internal/protocol"
)

// Seq runs validators strictly left to right, short-circuiting on the
// first failure. Use when later validators assume earlier ones already
// hold (e.g. a shape check before a field lookup).
func Seq(validators ...protocol.Validator) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		for _, v := range validators {
			if err := guard(ctx, v, tx, read); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any accepts on the first success. Errors are aggregated only when
// every validator fails.
func Any(validators ...protocol.Validator) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if len(validators) == 0 {
			return nil
		}
		var failures []string
		for _, v := range validators {
			err := guard(ctx, v, tx, read)
			if err == nil {
				return nil
			}
			failures = append(failures, err.Error())
		}
		return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
			"all alternatives rejected: %s", strings.Join(failures, "; "))
	}
}

// All runs validators concurrently and requires every one to pass.
// Branches must be independent: no validator may depend on another
// branch's side effects. Every branch is awaited before deciding, and
// all failure messages are aggregated. Use for independent, expensive
// checks (parallel signature + balance verification).
func All(validators ...protocol.Validator) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if len(validators) == 0 {
			return nil
		}
		results := make([]error, len(validators))
		var g errgroup.Group
		for i, v := range validators {
			i, v := i, v
			g.Go(func() error {
				results[i] = guard(ctx, v, tx, read)
				return nil
			})
		}
		// The closures never return errors; Wait is a pure join.
		_ = g.Wait()

		var failures []string
		for _, err := range results {
			if err != nil {
				if protocol.IsFault(err) {
					return err
				}
				failures = append(failures, err.Error())
			}
		}
		if len(failures) > 0 {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"%d of %d checks rejected: %s", len(failures), len(validators),
				strings.Join(failures, "; "))
		}
		return nil
	}
}
