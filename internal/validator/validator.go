// Package validator provides the composable predicates that approve or
// reject candidate writes, and the combinators that stitch them into
// per-namespace programs.
package validator

import (
	"context"
	"regexp"

	"github.com/roach88/stratum/internal/protocol"
)

// Resolver dispatches a program key to its validator. Satisfied by
// *schema.Table and *schema.Registry (via Load).
type Resolver interface {
	Resolve(key string) (protocol.Validator, bool)
}

// Accept approves every transaction.
func Accept() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		return nil
	}
}

// Reject refuses every transaction with the given reason.
func Reject(message string) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(), "%s", message)
	}
}

// Format approves transactions satisfying a structural predicate.
func Format(pred func(tx protocol.Transaction) bool, message string) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if !pred(tx) {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(), "%s", message)
		}
		return nil
	}
}

// Program resolves the transaction's program key through a resolver and
// delegates to the matching validator. Fails closed on unknown programs.
func Program(r Resolver) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		key := tx.URI.ProgramKey()
		v, ok := r.Resolve(key)
		if !ok {
			return protocol.Errorf(protocol.CodeUnknownProgram, tx.URI.String(),
				"no program configured for %q", key)
		}
		return v(ctx, tx, read)
	}
}

// URIPattern approves transactions whose full URI matches the pattern.
func URIPattern(re *regexp.Regexp) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if !re.MatchString(tx.URI.String()) {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"uri does not match pattern %q", re.String())
		}
		return nil
	}
}

// RequireFields approves object payloads carrying every named field.
func RequireFields(names ...string) protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		obj, ok := tx.Value.(map[string]any)
		if !ok {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"payload is not an object (got %T)", tx.Value)
		}
		for _, name := range names {
			if _, present := obj[name]; !present {
				return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
					"missing required field %q", name)
			}
		}
		return nil
	}
}

// Envelope approves payloads structurally shaped as TransactionData.
// Output programs are checked at write time by the two-phase unpack;
// this validator only gates the envelope shape itself.
func Envelope() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if _, ok := protocol.AsTransactionData(tx.Value); !ok {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"payload is not a transaction envelope (want inputs/outputs)")
		}
		return nil
	}
}

// guard converts a validator's panic into a rejection so one program's
// internal error cannot crash the receive path.
func guard(ctx context.Context, v protocol.Validator, tx protocol.Transaction, read protocol.Reader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"validator panic: %v", r)
		}
	}()
	return v(ctx, tx, read)
}
