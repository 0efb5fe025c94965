package content

import (
	"context"

	"github.com/roach88/stratum/internal/protocol"
)

// ImmutableValidator rejects a write when a record already exists at
// the address (write-once namespaces such as immutable://). It consults
// existing state through the read capability; a read fault propagates
// so the caller never commits blind.
func ImmutableValidator() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		if read == nil {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"immutable check requires a read capability")
		}
		existing, err := read.Read(ctx, tx.URI)
		if err != nil {
			if protocol.IsNotFound(err) {
				return nil
			}
			return protocol.Fault(tx.URI.String(), err)
		}
		if existing != nil {
			return protocol.Errorf(protocol.CodeImmutableConflict, tx.URI.String(),
				"record already exists (written at ts=%d)", existing.TS)
		}
		return nil
	}
}
