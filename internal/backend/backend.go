// Package backend implements the validated store shared by every local
// storage engine. An Engine supplies raw keyed persistence; Store wraps
// it with schema validation, envelope unpacking, server timestamps, and
// directory-style listing so all engines expose identical protocol
// semantics.
package backend

import (
	"context"
	"log/slog"
	"math"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/schema"
	"github.com/roach88/stratum/internal/uri"
)

// Entry is one raw key/record pair from an engine scan.
type Entry struct {
	Key    string
	Record protocol.Record
}

// Stats describes an engine's stored volume.
type Stats struct {
	Keys  int
	Bytes int
}

// Engine is the raw persistence surface a storage technology provides.
// Keys are full URI strings. Get and Delete return a protocol NOT_FOUND
// error for absent keys; any other failure may be an untyped error and
// is wrapped at the Store boundary.
type Engine interface {
	Put(ctx context.Context, key string, rec protocol.Record) error
	Get(ctx context.Context, key string) (*protocol.Record, error)
	Scan(ctx context.Context, prefix string) ([]Entry, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Store is a protocol.Backend over an Engine. Each Store owns its
// engine exclusively and carries its own schema copy; multiple stores
// in one process stay fully isolated.
type Store struct {
	name   string
	engine Engine
	table  *schema.Table
	log    *slog.Logger

	mu     sync.Mutex
	lastTS int64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore builds a validated store over an engine with its own schema
// table copy.
func NewStore(name string, engine Engine, table *schema.Table, opts ...Option) *Store {
	s := &Store{
		name:   name,
		engine: engine,
		table:  table,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns a server timestamp, non-decreasing per store.
func (s *Store) now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.Now().UnixMilli()
	if t < s.lastTS {
		t = s.lastTS
	}
	s.lastTS = t
	return t
}

// Write validates the payload against the store's schema, unpacks
// envelope payloads, and persists.
func (s *Store) Write(ctx context.Context, u uri.URI, value any) (*protocol.Record, error) {
	tx := protocol.Transaction{URI: u, Value: value}
	if err := s.table.Validate(ctx, tx, s); err != nil {
		return nil, err
	}

	if td, ok := protocol.AsTransactionData(value); ok {
		return s.writeEnvelope(ctx, u, value, td)
	}
	return s.put(ctx, u, value)
}

// writeEnvelope applies a TransactionData payload: every output is
// validated against the schema before anything is written, closing the
// partial-durability gap, then the envelope itself is persisted at its
// own URI for auditability and each output materialized as an
// independent record. Output values are stored as given; they are not
// recursively unpacked.
func (s *Store) writeEnvelope(ctx context.Context, u uri.URI, value any, td *protocol.TransactionData) (*protocol.Record, error) {
	outs := make([]protocol.Transaction, len(td.Outputs))
	for i, out := range td.Outputs {
		ou, err := uri.Parse(out.URI)
		if err != nil {
			return nil, protocol.Errorf(protocol.CodeEnvelopeRejected, u.String(),
				"output %d: %v", i, err)
		}
		outs[i] = protocol.Transaction{URI: ou, Value: out.Value}
		if err := s.table.Validate(ctx, outs[i], s); err != nil {
			return nil, protocol.Errorf(protocol.CodeEnvelopeRejected, u.String(),
				"output %d (%s): %v", i, ou, err)
		}
	}

	rec, err := s.put(ctx, u, value)
	if err != nil {
		return nil, err
	}
	for _, out := range outs {
		if _, err := s.put(ctx, out.URI, out.Value); err != nil {
			return nil, err
		}
	}
	s.log.Debug("envelope unpacked",
		"store", s.name, "uri", u.String(), "outputs", len(outs))
	return rec, nil
}

func (s *Store) put(ctx context.Context, u uri.URI, value any) (*protocol.Record, error) {
	rec := protocol.Record{TS: s.now(), Data: value}
	if err := s.engine.Put(ctx, u.String(), rec); err != nil {
		return nil, protocol.Fault(u.String(), err)
	}
	return &rec, nil
}

// Read is an exact-match lookup.
func (s *Store) Read(ctx context.Context, u uri.URI) (*protocol.Record, error) {
	rec, err := s.engine.Get(ctx, u.String())
	if err != nil {
		return nil, protocol.Fault(u.String(), err)
	}
	return rec, nil
}

// ReadMulti batches reads with per-item outcomes.
func (s *Store) ReadMulti(ctx context.Context, uris []uri.URI) (protocol.MultiRead, error) {
	out := protocol.MultiRead{Total: len(uris)}
	out.Results = make([]protocol.ReadOutcome, len(uris))
	for i, u := range uris {
		rec, err := s.Read(ctx, u)
		out.Results[i] = protocol.ReadOutcome{URI: u.String(), Record: rec, Err: err}
		if err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	return out, nil
}

// List returns the immediate children under the path, directory-style.
// A child that is itself a record carries its Record; a child that only
// exists as an intermediate segment of deeper keys carries none.
func (s *Store) List(ctx context.Context, u uri.URI, opts protocol.ListOptions) (protocol.Listing, error) {
	prefix := u.String() + "/"
	raw, err := s.engine.Scan(ctx, prefix)
	if err != nil {
		return protocol.Listing{}, protocol.Fault(u.String(), err)
	}

	// Collapse keys to immediate children. A record at the child path
	// wins over its role as a directory of deeper keys.
	children := make(map[string]*protocol.Record)
	for _, e := range raw {
		rest := strings.TrimPrefix(e.Key, prefix)
		name, _, deeper := strings.Cut(rest, "/")
		if name == "" {
			continue
		}
		if !deeper {
			rec := e.Record
			children[name] = &rec
		} else if _, seen := children[name]; !seen {
			children[name] = nil
		}
	}

	entries := make([]protocol.ListEntry, 0, len(children))
	for name, rec := range children {
		if opts.Pattern != "" {
			matched, err := path.Match(opts.Pattern, name)
			if err != nil {
				return protocol.Listing{}, protocol.Errorf(protocol.CodeValidationRejected,
					u.String(), "invalid list pattern %q: %v", opts.Pattern, err)
			}
			if !matched {
				continue
			}
		}
		entries = append(entries, protocol.ListEntry{
			Name:   name,
			URI:    u.Child(name).String(),
			Record: rec,
		})
	}

	sortEntries(entries, opts)
	return paginate(entries, opts), nil
}

func sortEntries(entries []protocol.ListEntry, opts protocol.ListOptions) {
	byTS := opts.SortBy == protocol.SortByTimestamp
	desc := opts.SortOrder == protocol.SortDesc
	sort.Slice(entries, func(i, j int) bool {
		var less bool
		if byTS {
			less = entryTS(entries[i]) < entryTS(entries[j])
			if entryTS(entries[i]) == entryTS(entries[j]) {
				less = entries[i].Name < entries[j].Name
			}
		} else {
			less = entries[i].Name < entries[j].Name
		}
		if desc {
			return !less
		}
		return less
	})
}

func entryTS(e protocol.ListEntry) int64 {
	if e.Record == nil {
		return 0
	}
	return e.Record.TS
}

func paginate(entries []protocol.ListEntry, opts protocol.ListOptions) protocol.Listing {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = protocol.DefaultListLimit
	}

	total := len(entries)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return protocol.Listing{
		Entries: entries[start:end],
		Pagination: protocol.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}

// Delete removes a record; NOT_FOUND if absent.
func (s *Store) Delete(ctx context.Context, u uri.URI) error {
	if err := s.engine.Delete(ctx, u.String()); err != nil {
		return protocol.Fault(u.String(), err)
	}
	return nil
}

// Health pings the engine and reports stored volume.
func (s *Store) Health(ctx context.Context) protocol.Health {
	if err := s.engine.Ping(ctx); err != nil {
		return protocol.Health{
			Status:  protocol.HealthDown,
			Message: err.Error(),
			Details: map[string]any{"name": s.name},
		}
	}
	details := map[string]any{"name": s.name}
	if stats, err := s.engine.Stats(ctx); err == nil {
		details["keys"] = stats.Keys
		details["bytes"] = stats.Bytes
	}
	return protocol.Health{Status: protocol.HealthOK, Details: details}
}

// Programs enumerates the store's configured program keys.
func (s *Store) Programs(ctx context.Context) ([]string, error) {
	return s.table.Programs(), nil
}

// Receive applies a transaction through the validated write path, so a
// Store can stand in wherever a node-like receiver is composed.
func (s *Store) Receive(ctx context.Context, tx protocol.Transaction) (*protocol.Record, error) {
	return s.Write(ctx, tx.URI, tx.Value)
}

// Close releases the engine's resources.
func (s *Store) Close() error {
	return s.engine.Close()
}
