// Package processor provides the composable actions executed after a
// transaction passes validation: persist, forward, emit side effects,
// or conditionally skip.
package processor

import (
	"context"

	"github.com/roach88/stratum/internal/protocol"
)

// Store persists the transaction through a backend's write path.
func Store(b protocol.Backend) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		_, err := b.Write(ctx, tx.URI, tx.Value)
		return err
	}
}

// Forward hands the transaction to another receiver (typically a remote
// node facade).
func Forward(r protocol.Receiver) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		_, err := r.Receive(ctx, tx)
		return err
	}
}

// Emit runs a side-effecting hook (webhooks, audit logging). A failing
// or panicking callback is caught and reported as the processor's
// error, never left to crash the caller.
func Emit(fn func(ctx context.Context, tx protocol.Transaction) error) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = protocol.Errorf(protocol.CodeBackendFault, tx.URI.String(),
					"emit callback panic: %v", r)
			}
		}()
		if cbErr := fn(ctx, tx); cbErr != nil {
			return protocol.Fault(tx.URI.String(), cbErr)
		}
		return nil
	}
}

// When gates a processor behind a condition. Transactions that do not
// match succeed silently: "not applicable" is not an error.
func When(cond func(tx protocol.Transaction) bool, p protocol.Processor) protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		if !cond(tx) {
			return nil
		}
		return p(ctx, tx)
	}
}

// Noop intentionally discards the transaction (e.g. a namespace that is
// validated but never persisted).
func Noop() protocol.Processor {
	return func(ctx context.Context, tx protocol.Transaction) error {
		return nil
	}
}
