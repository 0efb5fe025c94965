package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
)

const accountSchema = `{
	name!:  string
	amount: int & >=0
}`

func TestCUESchemaAccepts(t *testing.T) {
	v, err := CUESchema(accountSchema)
	require.NoError(t, err)

	err = v(context.Background(), tx("mutable://accounts/alice", map[string]any{
		"name":   "alice",
		"amount": 100,
	}), nil)
	assert.NoError(t, err)
}

func TestCUESchemaRejects(t *testing.T) {
	v, err := CUESchema(accountSchema)
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
	}{
		{"missing required field", map[string]any{"amount": 100}},
		{"negative amount", map[string]any{"name": "alice", "amount": -1}},
		{"wrong type", map[string]any{"name": 7, "amount": 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v(context.Background(), tx("mutable://accounts/alice", tt.value), nil)
			require.Error(t, err)
			assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
		})
	}
}

func TestCUESchemaCompileError(t *testing.T) {
	_, err := CUESchema(`{ name!: }`)
	require.Error(t, err)
}

func TestCUESchemaConcurrent(t *testing.T) {
	v, err := CUESchema(accountSchema)
	require.NoError(t, err)

	// Exercised through All, which fans branches out concurrently.
	combined := All(v, v, v, v)
	err = combined(context.Background(), tx("mutable://accounts/alice", map[string]any{
		"name":   "alice",
		"amount": 1,
	}), nil)
	assert.NoError(t, err)
}
