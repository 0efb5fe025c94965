package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
)

func openTest(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(":memory:")
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

func TestPutUpserts(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 1, Data: "old"}))
	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 2, Data: "new"}))

	rec, err := e.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.TS)
	assert.Equal(t, "new", rec.Data)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Keys)
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
	require.Len(t, entries, 2)
	assert.Equal(t, "mutable://open/users/alice", entries[0].Key)
	assert.Equal(t, "mutable://open/users/bob", entries[1].Key)
}

func TestScanIgnoresGlobCharacters(t *testing.T) {
	ctx := context.Background()
	e := openTest(t)

	// Keys containing SQL LIKE wildcards must match literally.
	require.NoError(t, e.Put(ctx, "mutable://open/100%_done", protocol.Record{TS: 1, Data: "a"}))
	require.NoError(t, e.Put(ctx, "mutable://open/other", protocol.Record{TS: 1, Data: "b"}))

	entries, err := e.Scan(ctx, "mutable://open/100%")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mutable://open/100%_done", entries[0].Key)
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

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Keys)
	assert.Equal(t, 0, stats.Bytes)

	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 1, Data: map[string]any{"a": 1}}))
	stats, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Keys)
	assert.Greater(t, stats.Bytes, 0)
}

func TestOpenOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	e, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, e.Put(ctx, "k", protocol.Record{TS: 1, Data: "v"}))
	require.NoError(t, e.Close())

	// Data survives reopen.
	e, err = Open(path)
	require.NoError(t, err)
	defer e.Close()

	rec, err := e.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", rec.Data)
}

func TestPing(t *testing.T) {
	e := openTest(t)
	assert.NoError(t, e.Ping(context.Background()))
}
