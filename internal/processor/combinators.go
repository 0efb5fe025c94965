package processor

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stratum/internal/protocol"
)

// Parallel runs processors concurrently. Overall success if at least
// one succeeds (replication-style: stored somewhere is good enough).
// Every branch is awaited; per-branch errors are aggregated only on
// total failure.
func Parallel(processors ...protocol.Processor) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		if len(processors) == 0 {
			return nil
		}
		results := make([]error, len(processors))
		var g errgroup.Group
		for i, p := range processors {
			i, p := i, p
			g.Go(func() error {
				results[i] = run(ctx, p, tx)
				return nil
			})
		}
		_ = g.Wait()

		var failures []string
		for _, err := range results {
			if err == nil {
				return nil
			}
			failures = append(failures, err.Error())
		}
		return protocol.Errorf(protocol.CodeBackendFault, tx.URI.String(),
			"all %d branches failed: %s", len(processors), strings.Join(failures, "; "))
	}
}

// Pipeline runs processors sequentially, stopping at the first failure.
func Pipeline(processors ...protocol.Processor) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		for _, p := range processors {
			if err := run(ctx, p, tx); err != nil {
				return err
			}
		}
		return nil
	}
}

// run converts a processor panic into a fault so one branch cannot
// abort its siblings in a concurrent fan-out.
func run(ctx context.Context, p protocol.Processor, tx protocol.Transaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.Errorf(protocol.CodeBackendFault, tx.URI.String(),
				"processor panic: %v", r)
		}
	}()
	return p(ctx, tx)
}
