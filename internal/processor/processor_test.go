package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

func tx(raw string, value any) protocol.Transaction {
	return protocol.Transaction{URI: uri.MustParse(raw), Value: value}
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	var seen []string
	ok := Emit(func(_ context.Context, tx protocol.Transaction) error {
		seen = append(seen, tx.URI.String())
		return nil
	})
	require.NoError(t, ok(ctx, tx("mutable://open/x", nil)))
	assert.Equal(t, []string{"mutable://open/x"}, seen)

	failing := Emit(func(context.Context, protocol.Transaction) error {
		return errors.New("webhook timed out")
	})
	err := failing(ctx, tx("mutable://open/x", nil))
	require.Error(t, err)
	assert.True(t, protocol.IsFault(err))
}

func TestEmitPanicBecomesFault(t *testing.T) {
	p := Emit(func(context.Context, protocol.Transaction) error {
		panic("nil map write")
	})
	err := p(context.Background(), tx("mutable://open/x", nil))
	require.Error(t, err)
	assert.True(t, protocol.IsFault(err))
	assert.Contains(t, err.Error(), "nil map write")
}

func TestWhen(t *testing.T) {
	ctx := context.Background()
	var calls int
	counting := func(context.Context, protocol.Transaction) error {
		calls++
		return nil
	}

	onlyOrders := When(func(tx protocol.Transaction) bool {
		return tx.URI.Namespace == "orders"
	}, counting)

	require.NoError(t, onlyOrders(ctx, tx("mutable://orders/1", nil)))
	require.NoError(t, onlyOrders(ctx, tx("mutable://users/alice", nil)))
	assert.Equal(t, 1, calls)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop()(context.Background(), tx("mutable://open/x", nil)))
}

func TestParallelAtLeastOneSuccess(t *testing.T) {
	ctx := context.Background()
	fail := func(context.Context, protocol.Transaction) error {
		return errors.New("disk full")
	}
	succeed := func(context.Context, protocol.Transaction) error { return nil }

	assert.NoError(t, Parallel(fail, succeed, fail)(ctx, tx("mutable://open/x", nil)))
	assert.NoError(t, Parallel()(ctx, tx("mutable://open/x", nil)))

	err := Parallel(fail, fail)(ctx, tx("mutable://open/x", nil))
	require.Error(t, err)
	assert.True(t, protocol.IsFault(err))
	assert.Contains(t, err.Error(), "all 2 branches failed")
}

func TestParallelAwaitsEveryBranch(t *testing.T) {
	ctx := context.Background()
	var ran atomic.Int32

	branch := func(err error) protocol.Processor {
		return func(context.Context, protocol.Transaction) error {
			ran.Add(1)
			return err
		}
	}

	err := Parallel(
		branch(errors.New("branch down")),
		branch(nil),
		branch(nil),
	)(ctx, tx("mutable://open/x", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(3), ran.Load())
}

func TestParallelPanicIsOneBranchFailure(t *testing.T) {
	ctx := context.Background()
	boom := func(context.Context, protocol.Transaction) error {
		panic("slice bounds")
	}
	succeed := func(context.Context, protocol.Transaction) error { return nil }

	// A panicking sibling does not poison a successful branch.
	assert.NoError(t, Parallel(boom, succeed)(ctx, tx("mutable://open/x", nil)))

	err := Parallel(boom)(ctx, tx("mutable://open/x", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slice bounds")
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	var order []string
	step := func(name string, err error) protocol.Processor {
		return func(context.Context, protocol.Transaction) error {
			order = append(order, name)
			return err
		}
	}

	err := Pipeline(
		step("persist", nil),
		step("notify", errors.New("broker unreachable")),
		step("archive", nil),
	)(ctx, tx("mutable://open/x", nil))

	require.Error(t, err)
	assert.Equal(t, []string{"persist", "notify"}, order)
}
