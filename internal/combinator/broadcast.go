// Package combinator composes several backends into one logical
// backend: Broadcast fans writes out to all of them, Sequence tries
// them in priority order.
package combinator

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// Broadcast dispatches writes and deletes to every backend concurrently
// and requires all of them to accept. Reads consult only the first
// backend; results are never merged or reconciled.
//
// Writes are not rolled back on partial failure: a backend that
// accepted keeps its copy even when a sibling rejects, so backends can
// diverge. This is a known weak-consistency tradeoff; the two-phase
// envelope rule narrows it within a single backend but not across them.
type Broadcast struct {
	backends []protocol.Backend
	log      *slog.Logger
}

// NewBroadcast composes backends into a broadcast group. Panics on an
// empty set: a group with nothing to write to is a configuration fault.
func NewBroadcast(backends []protocol.Backend, opts ...Option) *Broadcast {
	if len(backends) == 0 {
		panic("combinator: broadcast requires at least one backend")
	}
	b := &Broadcast{backends: backends, log: slog.Default()}
	for _, opt := range opts {
		opt.applyBroadcast(b)
	}
	return b
}

// Write fans the write out to every backend. All dispatches are awaited
// even after a failure, so no in-flight write is orphaned; the first
// failing backend (in list order) determines the reported error. The
// returned record is the first backend's.
func (b *Broadcast) Write(ctx context.Context, u uri.URI, value any) (*protocol.Record, error) {
	records := make([]*protocol.Record, len(b.backends))
	errs := b.fanOut(ctx, u.String(), func(i int, be protocol.Backend) error {
		rec, err := be.Write(ctx, u, value)
		records[i] = rec
		return err
	})
	for i, err := range errs {
		if err != nil {
			b.log.Warn("broadcast write rejected",
				"uri", u.String(), "backend", i, "code", protocol.CodeOf(err))
			return nil, err
		}
	}
	return records[0], nil
}

// Receive applies a transaction through the broadcast write path.
func (b *Broadcast) Receive(ctx context.Context, tx protocol.Transaction) (*protocol.Record, error) {
	return b.Write(ctx, tx.URI, tx.Value)
}

// Read consults only the first backend.
func (b *Broadcast) Read(ctx context.Context, u uri.URI) (*protocol.Record, error) {
	var rec *protocol.Record
	err := guard(u.String(), func() error {
		var callErr error
		rec, callErr = b.backends[0].Read(ctx, u)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ReadMulti consults only the first backend.
func (b *Broadcast) ReadMulti(ctx context.Context, uris []uri.URI) (protocol.MultiRead, error) {
	var mr protocol.MultiRead
	err := guard("", func() error {
		var callErr error
		mr, callErr = b.backends[0].ReadMulti(ctx, uris)
		return callErr
	})
	if err != nil {
		return protocol.MultiRead{}, err
	}
	return mr, nil
}

// List consults only the first backend.
func (b *Broadcast) List(ctx context.Context, u uri.URI, opts protocol.ListOptions) (protocol.Listing, error) {
	var listing protocol.Listing
	err := guard(u.String(), func() error {
		var callErr error
		listing, callErr = b.backends[0].List(ctx, u, opts)
		return callErr
	})
	if err != nil {
		return protocol.Listing{}, err
	}
	return listing, nil
}

// Delete is broadcast like write: all backends must succeed.
func (b *Broadcast) Delete(ctx context.Context, u uri.URI) error {
	errs := b.fanOut(ctx, u.String(), func(i int, be protocol.Backend) error {
		return be.Delete(ctx, u)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Health aggregates every backend's self-check: ok only when all are
// ok, down when all are down, degraded otherwise.
func (b *Broadcast) Health(ctx context.Context) protocol.Health {
	healths := make([]protocol.Health, len(b.backends))
	_ = b.fanOut(ctx, "", func(i int, be protocol.Backend) error {
		healths[i] = be.Health(ctx)
		return nil
	})

	details := make(map[string]any, len(healths))
	ok, down := 0, 0
	for i, h := range healths {
		details[backendName(i, h)] = h.Status
		switch h.Status {
		case protocol.HealthOK:
			ok++
		case protocol.HealthDown:
			down++
		}
	}

	status := protocol.HealthDegraded
	switch {
	case ok == len(healths):
		status = protocol.HealthOK
	case down == len(healths):
		status = protocol.HealthDown
	}
	return protocol.Health{Status: status, Details: details}
}

// Programs reports the first backend's program keys.
func (b *Broadcast) Programs(ctx context.Context) ([]string, error) {
	return b.backends[0].Programs(ctx)
}

// Close closes every backend, returning the first failure.
func (b *Broadcast) Close() error {
	var first error
	for _, be := range b.backends {
		if err := be.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fanOut runs fn against every backend concurrently and waits for all
// outcomes. One branch's fault never aborts the evaluation of its
// siblings; panics are converted to tagged faults.
func (b *Broadcast) fanOut(ctx context.Context, u string, fn func(i int, be protocol.Backend) error) []error {
	errs := make([]error, len(b.backends))
	var g errgroup.Group
	for i, be := range b.backends {
		i, be := i, be
		g.Go(func() error {
			errs[i] = guard(u, func() error { return fn(i, be) })
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// guard converts a panicking backend call into a tagged fault.
func guard(u string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.Errorf(protocol.CodeBackendFault, u, "backend panic: %v", r)
		}
	}()
	if callErr := fn(); callErr != nil {
		return protocol.Fault(u, callErr)
	}
	return nil
}

func backendName(i int, h protocol.Health) string {
	if h.Details != nil {
		if name, ok := h.Details["name"].(string); ok && name != "" {
			return name
		}
	}
	return "backend_" + strconv.Itoa(i)
}

// Option configures a combinator.
type Option interface {
	applyBroadcast(*Broadcast)
	applySequence(*Sequence)
}

type loggerOption struct {
	log *slog.Logger
}

func (o loggerOption) applyBroadcast(b *Broadcast) { b.log = o.log }
func (o loggerOption) applySequence(s *Sequence)   { s.log = o.log }

// WithLogger sets the combinator's logger.
func WithLogger(log *slog.Logger) Option {
	return loggerOption{log: log}
}
