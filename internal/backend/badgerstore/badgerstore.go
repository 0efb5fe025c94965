// Package badgerstore provides an embedded document-store engine on
// BadgerDB. Records are persisted as JSON values under their full URI
// key; prefix iteration backs directory-style listing.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/stratum/internal/backend"
	"github.com/roach88/stratum/internal/protocol"
)

// Config holds configuration for a badger engine.
type Config struct {
	// Path is the directory for the database files. Ignored when
	// InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns durable on-disk settings.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns settings for tests: no disk I/O, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Engine is a backend.Engine over a badger database.
type Engine struct {
	db *badger.DB
}

// Open creates and opens a badger engine.
func Open(cfg Config) (*Engine, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badgerstore: path is required unless in-memory")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Engine{db: db}, nil
}

// Put stores a record as JSON, replacing any existing one.
func (e *Engine) Put(ctx context.Context, key string, rec protocol.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

// Get retrieves a record; NOT_FOUND for absent keys.
func (e *Engine) Get(ctx context.Context, key string) (*protocol.Record, error) {
	var rec protocol.Record
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, protocol.NotFound(key)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Scan returns all entries under a key prefix.
func (e *Engine) Scan(ctx context.Context, prefix string) ([]backend.Entry, error) {
	var entries []backend.Entry
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			var rec protocol.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode record at %s: %w", key, err)
			}
			entries = append(entries, backend.Entry{Key: key, Record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a record; NOT_FOUND if it does not exist.
func (e *Engine) Delete(ctx context.Context, key string) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return protocol.NotFound(key)
	}
	return err
}

// Ping verifies the database is open.
func (e *Engine) Ping(ctx context.Context) error {
	if e.db.IsClosed() {
		return fmt.Errorf("badgerstore: database is closed")
	}
	return nil
}

// Stats counts keys and reports on-disk size.
func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	var stats backend.Stats
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stats.Keys++
		}
		return nil
	})
	if err != nil {
		return backend.Stats{}, err
	}
	lsm, vlog := e.db.Size()
	stats.Bytes = int(lsm + vlog)
	return stats, nil
}

// Close releases the database. Idempotent.
func (e *Engine) Close() error {
	if e.db.IsClosed() {
		return nil
	}
	return e.db.Close()
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
