// Package protocol defines the shared vocabulary of the persistence
// protocol: records, transactions, the backend contract, and the
// validator/processor function types every other package composes.
package protocol

import (
	"context"

	"github.com/roach88/stratum/internal/uri"
)

// Record is the persisted unit: a server-assigned timestamp plus the
// stored value. Records are replaced whole on rewrite; there is no
// partial update.
type Record struct {
	TS   int64 `json:"ts"` // unix milliseconds, non-decreasing per backend
	Data any   `json:"data"`
}

// Transaction is one candidate write: an address and a payload.
// Stateless; it exists only for the duration of a single receive call.
type Transaction struct {
	URI   uri.URI
	Value any
}

// Output is one URI/value pair to be materialized from an envelope.
type Output struct {
	URI   string
	Value any
}

// TransactionData is the multi-output envelope payload. Inputs are
// referenced/consumed URIs whose semantics are namespace-defined; the
// core records but does not interpret them. Every output is applied as
// an independent write under its own program.
type TransactionData struct {
	Inputs  []string
	Outputs []Output
}

// AsTransactionData structurally detects an envelope payload: an object
// holding an "inputs" array of strings and an "outputs" array of
// [uri, value] pairs.
//
// This is a structural check, not a type tag. A legitimate payload that
// coincidentally carries both fields in this shape will be treated as an
// envelope; deployments for which that ambiguity matters must tag the
// variant at the transport boundary instead.
func AsTransactionData(v any) (*TransactionData, bool) {
	if td, ok := v.(TransactionData); ok {
		return &td, true
	}
	if td, ok := v.(*TransactionData); ok {
		return td, true
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	rawInputs, ok := obj["inputs"].([]any)
	if !ok {
		return nil, false
	}
	rawOutputs, ok := obj["outputs"].([]any)
	if !ok {
		return nil, false
	}

	inputs := make([]string, len(rawInputs))
	for i, in := range rawInputs {
		s, ok := in.(string)
		if !ok {
			return nil, false
		}
		inputs[i] = s
	}

	outputs := make([]Output, len(rawOutputs))
	for i, out := range rawOutputs {
		pair, ok := out.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		target, ok := pair[0].(string)
		if !ok {
			return nil, false
		}
		outputs[i] = Output{URI: target, Value: pair[1]}
	}

	return &TransactionData{Inputs: inputs, Outputs: outputs}, true
}

// Reader is the read-back capability handed to validators for
// cross-referencing existing state (immutability checks, balance
// lookups). Usually a Backend or a read combinator.
type Reader interface {
	Read(ctx context.Context, u uri.URI) (*Record, error)
}

// Receiver accepts validated transactions. Implemented by backends and
// by the node facade.
type Receiver interface {
	Receive(ctx context.Context, tx Transaction) (*Record, error)
}

// Validator approves or rejects a candidate write. A nil return means
// valid; rejections are *Error values with a rejection-class code.
// Validators must report their own internal failures as errors, never
// panic across this boundary.
type Validator func(ctx context.Context, tx Transaction, read Reader) error

// Processor is an action executed after validation succeeds.
type Processor func(ctx context.Context, tx Transaction) error
