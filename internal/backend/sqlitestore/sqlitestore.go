// Package sqlitestore provides a relational engine on SQLite. Records
// live in a single keyed table with their payload as JSON text; prefix
// range queries back directory-style listing.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/stratum/internal/backend"
	"github.com/roach88/stratum/internal/protocol"
)

//go:embed schema.sql
var schemaSQL string

// Engine is a backend.Engine over a SQLite database.
type Engine struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// pragmas and schema. Idempotent. Use ":memory:" for an ephemeral
// database in tests.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string) (*Engine, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: connect: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: schema: %w", err)
	}
	return &Engine{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Put stores a record, replacing any existing one at the key.
func (e *Engine) Put(ctx context.Context, key string, rec protocol.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode record data: %w", err)
	}
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO records (key, ts, data)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET ts = excluded.ts, data = excluded.data
	`, key, rec.TS, string(data))
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Get retrieves a record; NOT_FOUND for absent keys.
func (e *Engine) Get(ctx context.Context, key string) (*protocol.Record, error) {
	var (
		ts   int64
		data string
	)
	err := e.db.QueryRowContext(ctx,
		`SELECT ts, data FROM records WHERE key = ?`, key).Scan(&ts, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, protocol.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return decodeRecord(key, ts, data)
}

// Scan returns all entries under a key prefix, ordered by key.
func (e *Engine) Scan(ctx context.Context, prefix string) ([]backend.Entry, error) {
	// Prefix match via substr; avoids LIKE so glob characters in URIs
	// need no escaping.
	rows, err := e.db.QueryContext(ctx, `
		SELECT key, ts, data FROM records
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key ASC
	`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var entries []backend.Entry
	for rows.Next() {
		var (
			key  string
			ts   int64
			data string
		)
		if err := rows.Scan(&key, &ts, &data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec, err := decodeRecord(key, ts, data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, backend.Entry{Key: key, Record: *rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return entries, nil
}

// Delete removes a record; NOT_FOUND if it does not exist.
func (e *Engine) Delete(ctx context.Context, key string) error {
	res, err := e.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return protocol.NotFound(key)
	}
	return nil
}

// Ping verifies the database connection.
func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Stats counts records and their encoded payload bytes.
func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	var stats backend.Stats
	err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM records`).
		Scan(&stats.Keys, &stats.Bytes)
	if err != nil {
		return backend.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection. Idempotent.
func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func decodeRecord(key string, ts int64, data string) (*protocol.Record, error) {
	var value any
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, fmt.Errorf("decode record at %s: %w", key, err)
	}
	return &protocol.Record{TS: ts, Data: value}, nil
}
