package validator

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/stratum/internal/protocol"
)

// CUESchema builds a validator from a CUE schema source. The payload of
// each candidate write is unified against the schema; any unification
// or concreteness error is a validation rejection carrying CUE's
// diagnostic detail.
//
// The schema is compiled once. A configuration error in the source is
// surfaced at construction (startup), not per transaction.
//
// Example source:
//
//	{
//		name!:  string
//		amount: int & >=0
//	}
func CUESchema(source string) (protocol.Validator, error) {
	cctx := cuecontext.New()
	schema := cctx.CompileString(source)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile cue schema: %s", cueerrors.Details(err, nil))
	}

	// cue.Context evaluation is serialized; validators may run
	// concurrently under All.
	var mu sync.Mutex

	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		mu.Lock()
		defer mu.Unlock()

		val := cctx.Encode(tx.Value)
		if err := val.Err(); err != nil {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"payload not encodable for schema check: %v", err)
		}

		unified := schema.Unify(val)
		if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"payload does not satisfy schema: %s", cueerrors.Details(err, nil))
		}
		return nil
	}, nil
}
