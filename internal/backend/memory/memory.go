// Package memory provides the reference in-memory engine: a mutex-owned
// map arena keyed by full URI string. Each instance owns its storage
// exclusively, so many nodes can coexist in one process (tests spin up
// several concurrently).
package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/roach88/stratum/internal/backend"
	"github.com/roach88/stratum/internal/protocol"
)

// Engine is a thread-safe in-memory key/record map.
type Engine struct {
	mu   sync.RWMutex
	data map[string]protocol.Record
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{data: make(map[string]protocol.Record)}
}

// Put stores a record, replacing any existing one.
func (e *Engine) Put(ctx context.Context, key string, rec protocol.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		return protocol.Errorf(protocol.CodeBackendFault, key, "engine is closed")
	}
	e.data[key] = rec
	return nil
}

// Get retrieves a record; NOT_FOUND for absent keys. A closed engine
// reports a fault, never absence.
func (e *Engine) Get(ctx context.Context, key string) (*protocol.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.data == nil {
		return nil, protocol.Errorf(protocol.CodeBackendFault, key, "engine is closed")
	}
	rec, ok := e.data[key]
	if !ok {
		return nil, protocol.NotFound(key)
	}
	return &rec, nil
}

// Scan returns all entries whose key starts with prefix, unordered.
func (e *Engine) Scan(ctx context.Context, prefix string) ([]backend.Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.data == nil {
		return nil, protocol.Errorf(protocol.CodeBackendFault, prefix, "engine is closed")
	}
	var entries []backend.Entry
	for k, rec := range e.data {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, backend.Entry{Key: k, Record: rec})
		}
	}
	return entries, nil
}

// Delete removes a record; NOT_FOUND if it does not exist.
func (e *Engine) Delete(ctx context.Context, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		return protocol.Errorf(protocol.CodeBackendFault, key, "engine is closed")
	}
	if _, ok := e.data[key]; !ok {
		return protocol.NotFound(key)
	}
	delete(e.data, key)
	return nil
}

// Ping reports whether the engine is usable.
func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.data == nil {
		return protocol.Errorf(protocol.CodeBackendFault, "", "engine is closed")
	}
	return nil
}

// Stats counts keys and the encoded size of stored values.
func (e *Engine) Stats(ctx context.Context) (backend.Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := backend.Stats{Keys: len(e.data)}
	for _, rec := range e.data {
		if raw, err := json.Marshal(rec.Data); err == nil {
			stats.Bytes += len(raw)
		}
	}
	return stats, nil
}

// Close drops the map. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = nil
	return nil
}
