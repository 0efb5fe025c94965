// Package schema maps program keys (scheme://namespace) to validators.
//
// A Table is the dispatch unit that turns the generic protocol into
// domain-specific rules. Tables are immutable after construction;
// hot-reload replaces the whole table atomically through a Registry,
// never by mutating a live table, so a transaction is always validated
// against a single consistent schema version.
package schema

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/roach88/stratum/internal/protocol"
)

// Table is an immutable program-key → validator mapping.
type Table struct {
	programs map[string]protocol.Validator
	keys     []string
}

// New builds a Table from a program map. The map is copied; later
// mutation of the argument does not affect the table.
func New(programs map[string]protocol.Validator) *Table {
	copied := make(map[string]protocol.Validator, len(programs))
	keys := make([]string, 0, len(programs))
	for k, v := range programs {
		copied[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Table{programs: copied, keys: keys}
}

// Resolve returns the validator for a program key.
func (t *Table) Resolve(key string) (protocol.Validator, bool) {
	v, ok := t.programs[key]
	return v, ok
}

// Programs returns the configured program keys, sorted.
func (t *Table) Programs() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Validate dispatches the transaction to its program's validator.
// Fails closed: an absent program key is an UNKNOWN_PROGRAM rejection,
// never a silent accept. A validator that panics is reported as a
// rejection rather than crashing the caller.
func (t *Table) Validate(ctx context.Context, tx protocol.Transaction, read protocol.Reader) (err error) {
	key := tx.URI.ProgramKey()
	v, ok := t.programs[key]
	if !ok {
		return protocol.Errorf(protocol.CodeUnknownProgram, tx.URI.String(),
			"no program configured for %q", key)
	}

	defer func() {
		if r := recover(); r != nil {
			err = protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"validator panic: %v", r)
		}
	}()
	return v(ctx, tx, read)
}

// Registry holds the active schema snapshot behind a single swappable
// reference. Concurrent requests load it without locking; Swap
// replaces the whole table and returns the previous one.
type Registry struct {
	current atomic.Pointer[Table]
}

// NewRegistry creates a registry with an initial table.
func NewRegistry(t *Table) (*Registry, error) {
	if t == nil {
		return nil, fmt.Errorf("schema registry requires an initial table")
	}
	r := &Registry{}
	r.current.Store(t)
	return r, nil
}

// Load returns the active table snapshot.
func (r *Registry) Load() *Table {
	return r.current.Load()
}

// Resolve dispatches through the active snapshot.
func (r *Registry) Resolve(key string) (protocol.Validator, bool) {
	return r.Load().Resolve(key)
}

// Swap atomically installs a new table, returning the old one.
// In-flight requests holding the old snapshot finish against it.
func (r *Registry) Swap(t *Table) *Table {
	if t == nil {
		return r.current.Load()
	}
	return r.current.Swap(t)
}
