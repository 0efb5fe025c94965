package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// stubReader serves a fixed record set, or fails every read.
type stubReader struct {
	records map[string]*protocol.Record
	err     error
}

func (r *stubReader) Read(_ context.Context, u uri.URI) (*protocol.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.records[u.String()]
	if !ok {
		return nil, protocol.NotFound(u.String())
	}
	return rec, nil
}

func TestImmutableValidatorFirstWrite(t *testing.T) {
	v := ImmutableValidator()
	read := &stubReader{records: map[string]*protocol.Record{}}

	err := v(context.Background(), tx("immutable://ledger/entry-1", map[string]any{"amount": 5}), read)
	assert.NoError(t, err)
}

func TestImmutableValidatorConflict(t *testing.T) {
	v := ImmutableValidator()
	read := &stubReader{records: map[string]*protocol.Record{
		"immutable://ledger/entry-1": {TS: 1234, Data: map[string]any{"amount": 5}},
	}}

	err := v(context.Background(), tx("immutable://ledger/entry-1", map[string]any{"amount": 6}), read)
	require.Error(t, err)
	assert.Equal(t, protocol.CodeImmutableConflict, protocol.CodeOf(err))
	assert.Contains(t, err.Error(), "1234")
}

func TestImmutableValidatorReadFaultPropagates(t *testing.T) {
	v := ImmutableValidator()
	read := &stubReader{err: errors.New("backend unreachable")}

	err := v(context.Background(), tx("immutable://ledger/entry-1", nil), read)
	require.Error(t, err)
	assert.True(t, protocol.IsFault(err))
}

func TestImmutableValidatorRequiresReader(t *testing.T) {
	err := ImmutableValidator()(context.Background(), tx("immutable://ledger/entry-1", nil), nil)
	require.Error(t, err)
	assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
}
