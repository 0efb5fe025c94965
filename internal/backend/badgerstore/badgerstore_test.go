package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
)

func openTest(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	value := map[string]any{"name": "alice", "amount": float64(5)}
	require.NoError(t, e.Put(ctx, "mutable://open/x", protocol.Record{TS: 7, Data: value}))

	rec, err := e.Get(ctx, "mutable://open/x")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.TS)
	assert.Equal(t, value, rec.Data)

	_, err = e.Get(ctx, "mutable://open/missing")
	assert.True(t, protocol.IsNotFound(err))
}

func TestScanPrefix(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	for i, k := range []string{
		"mutable://open/users/alice",
		"mutable://open/users/bob",
		"mutable://open/orders/1",
	} {
		require.NoError(t, e.Put(ctx, k, protocol.Record{TS: int64(i), Data: k}))
	}

	entries, err := e.Scan(ctx, "mutable://open/users/")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = e.Scan(ctx, "mutable://open/none/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 1, Data: "v"}))
	require.NoError(t, e.Delete(ctx, "k"))
	assert.True(t, protocol.IsNotFound(e.Delete(ctx, "k")))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	require.NoError(t, e.Put(ctx, "a", protocol.Record{TS: 1, Data: "x"}))
	require.NoError(t, e.Put(ctx, "b", protocol.Record{TS: 2, Data: "y"}))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keys)
}

func TestOnDiskPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := DefaultConfig(dir)
	e, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 1, Data: "v"}))
	require.NoError(t, e.Close())

	e, err = Open(cfg)
	require.NoError(t, err)
	defer e.Close()

	rec, err := e.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", rec.Data)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	e, err := Open(InMemoryConfig())
	require.NoError(t, err)

	require.NoError(t, e.Ping(context.Background()))
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Error(t, e.Ping(context.Background()))
}
