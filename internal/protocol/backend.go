package protocol

import (
	"context"

	"github.com/roach88/stratum/internal/uri"
)

// Sort and order values for ListOptions.
const (
	SortByName      = "name"
	SortByTimestamp = "timestamp"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultListLimit bounds a listing page when the caller does not set one.
const DefaultListLimit = 100

// ListOptions controls pagination, filtering, and ordering of a listing.
// Zero values select page 1, DefaultListLimit, no pattern, name-ascending.
type ListOptions struct {
	Page      int
	Limit     int
	Pattern   string // glob (*, ?) matched against the child name
	SortBy    string // SortByName | SortByTimestamp
	SortOrder string // SortAsc | SortDesc
}

// ListEntry is one immediate child under a listed path. Record is set
// when the child is itself a stored record; nil when it is only an
// intermediate path segment with deeper descendants.
type ListEntry struct {
	Name   string  `json:"name"`
	URI    string  `json:"uri"`
	Record *Record `json:"record,omitempty"`
}

// Pagination describes the window a listing returned.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Listing is a page of immediate children, directory-style.
type Listing struct {
	Entries    []ListEntry `json:"entries"`
	Pagination Pagination  `json:"pagination"`
}

// ReadOutcome is one item of a batched read.
type ReadOutcome struct {
	URI    string  `json:"uri"`
	Record *Record `json:"record,omitempty"`
	Err    error   `json:"-"`
}

// MultiRead is the result of a batched read. Per-item outcomes are
// always populated; Succeeded counts items with a record. The batch as
// a whole is considered successful when at least one item succeeded.
type MultiRead struct {
	Results   []ReadOutcome
	Total     int
	Succeeded int
	Failed    int
}

// OK reports the at-least-one-succeeded batch policy.
func (m MultiRead) OK() bool {
	return m.Succeeded > 0
}

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// Health is a backend self-check result. Must be produced without
// blocking indefinitely.
type Health struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Backend is the contract every storage engine satisfies, uniformly
// regardless of storage technology.
//
// Expected conditions (not-found, validation rejection) surface as
// *Error values with the matching code, never as untyped failures.
// Infrastructure faults are wrapped via Fault at the backend boundary
// so combinators can always discriminate outcomes.
type Backend interface {
	// Write validates value against the backend's own schema copy, then
	// persists it, returning the stored record with its server-assigned
	// timestamp. Envelope payloads unpack into their outputs; see the
	// node and backend packages for the two-phase rule.
	Write(ctx context.Context, u uri.URI, value any) (*Record, error)

	// Read is an exact-match lookup. Absence is CodeNotFound.
	Read(ctx context.Context, u uri.URI) (*Record, error)

	// ReadMulti batches reads with per-item outcomes.
	ReadMulti(ctx context.Context, uris []uri.URI) (MultiRead, error)

	// List returns immediate children under a path prefix.
	List(ctx context.Context, u uri.URI, opts ListOptions) (Listing, error)

	// Delete removes a record; CodeNotFound if it does not exist.
	Delete(ctx context.Context, u uri.URI) error

	// Health self-checks the backend.
	Health(ctx context.Context) Health

	// Programs enumerates the configured program keys.
	Programs(ctx context.Context) ([]string, error)

	// Close releases backend resources. Idempotent.
	Close() error
}
