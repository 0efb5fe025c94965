package combinator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// Sequence is the primary-plus-fallback composition: every operation
// tries the backends strictly in order and returns the first success.
// Contrast with Broadcast, which is broadcast-write plus primary-read.
type Sequence struct {
	backends []protocol.Backend
	log      *slog.Logger
}

// NewSequence composes backends into a priority chain. Panics on an
// empty set: a chain with no backends is a configuration fault.
func NewSequence(backends []protocol.Backend, opts ...Option) *Sequence {
	if len(backends) == 0 {
		panic("combinator: sequence requires at least one backend")
	}
	s := &Sequence{backends: backends, log: slog.Default()}
	for _, opt := range opts {
		opt.applySequence(s)
	}
	return s
}

// Write tries backends in order until one accepts; it does not
// broadcast. All errors are aggregated when every backend refuses.
func (s *Sequence) Write(ctx context.Context, u uri.URI, value any) (*protocol.Record, error) {
	var failures []string
	for i, be := range s.backends {
		rec, err := tryWrite(ctx, be, u, value)
		if err == nil {
			return rec, nil
		}
		s.log.Debug("sequence write fell through",
			"uri", u.String(), "backend", i, "code", protocol.CodeOf(err))
		failures = append(failures, err.Error())
	}
	return nil, protocol.Errorf(protocol.CodeValidationRejected, u.String(),
		"all %d backends refused: %s", len(s.backends), strings.Join(failures, "; "))
}

func tryWrite(ctx context.Context, be protocol.Backend, u uri.URI, value any) (*protocol.Record, error) {
	var rec *protocol.Record
	err := guard(u.String(), func() error {
		var callErr error
		rec, callErr = be.Write(ctx, u, value)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Receive applies a transaction through the first-match write path.
func (s *Sequence) Receive(ctx context.Context, tx protocol.Transaction) (*protocol.Record, error) {
	return s.Write(ctx, tx.URI, tx.Value)
}

// Read returns the first backend's success, falling back in order.
func (s *Sequence) Read(ctx context.Context, u uri.URI) (*protocol.Record, error) {
	var lastErr error
	for _, be := range s.backends {
		var rec *protocol.Record
		err := guard(u.String(), func() error {
			var callErr error
			rec, callErr = be.Read(ctx, u)
			return callErr
		})
		if err == nil {
			return rec, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ReadMulti returns the first backend whose batch had any success; when
// none does, the last backend's outcomes are reported. A chain where
// every backend faulted surfaces the last fault instead of an empty
// batch, so the caller never mistakes a dead chain for absence.
func (s *Sequence) ReadMulti(ctx context.Context, uris []uri.URI) (protocol.MultiRead, error) {
	var (
		last     protocol.MultiRead
		haveLast bool
		lastErr  error
	)
	for _, be := range s.backends {
		var mr protocol.MultiRead
		err := guard("", func() error {
			var callErr error
			mr, callErr = be.ReadMulti(ctx, uris)
			return callErr
		})
		if err != nil {
			lastErr = err
			continue
		}
		if mr.OK() {
			return mr, nil
		}
		last = mr
		haveLast = true
	}
	if haveLast {
		return last, nil
	}
	return protocol.MultiRead{}, lastErr
}

// List returns the first backend's successful listing.
func (s *Sequence) List(ctx context.Context, u uri.URI, opts protocol.ListOptions) (protocol.Listing, error) {
	var lastErr error
	for _, be := range s.backends {
		var listing protocol.Listing
		err := guard(u.String(), func() error {
			var callErr error
			listing, callErr = be.List(ctx, u, opts)
			return callErr
		})
		if err == nil {
			return listing, nil
		}
		lastErr = err
	}
	return protocol.Listing{}, lastErr
}

// Delete removes the record from the first backend that holds it.
func (s *Sequence) Delete(ctx context.Context, u uri.URI) error {
	var lastErr error
	for _, be := range s.backends {
		err := guard(u.String(), func() error {
			return be.Delete(ctx, u)
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Health reports ok if any backend is healthy (the chain can still
// serve), annotating every backend's status.
func (s *Sequence) Health(ctx context.Context) protocol.Health {
	details := make(map[string]any, len(s.backends))
	anyOK := false
	for i, be := range s.backends {
		h := be.Health(ctx)
		details[backendName(i, h)] = h.Status
		if h.Status == protocol.HealthOK {
			anyOK = true
		}
	}
	status := protocol.HealthDown
	if anyOK {
		status = protocol.HealthOK
	}
	return protocol.Health{Status: status, Details: details}
}

// Programs reports the first backend's program keys.
func (s *Sequence) Programs(ctx context.Context) ([]string, error) {
	return s.backends[0].Programs(ctx)
}

// Close closes every backend in the chain, returning the first failure.
func (s *Sequence) Close() error {
	var first error
	for _, be := range s.backends {
		if err := be.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
