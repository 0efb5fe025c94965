// Package node glues one write path, one read path, and a schema
// registry into the validated client facade: the single Receive entry
// point every external caller uses.
package node

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/schema"
	"github.com/roach88/stratum/internal/uri"
)

// Node is the composed unit exposing Receive as the write entry point.
// The write and read paths may be single backends or combinators; the
// registry holds the active schema snapshot.
type Node struct {
	write    protocol.Backend
	read     protocol.Backend
	registry *schema.Registry
	log      *slog.Logger
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the node's logger.
func WithLogger(log *slog.Logger) Option {
	return func(n *Node) {
		n.log = log
	}
}

// New composes a node from a write path, a read path, and a schema
// registry. Pass the same backend as both paths for a single-backend
// node.
func New(write, read protocol.Backend, registry *schema.Registry, opts ...Option) *Node {
	n := &Node{
		write:    write,
		read:     read,
		registry: registry,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Receive validates the transaction against the active schema snapshot
// (validators cross-reference existing state through the read path),
// then persists through the write path. Exactly one snapshot is used
// for the whole call: a concurrent hot-reload never splits a
// transaction across schema versions.
func (n *Node) Receive(ctx context.Context, tx protocol.Transaction) (*protocol.Record, error) {
	rid := uuid.Must(uuid.NewV7()).String()
	table := n.registry.Load()

	if err := table.Validate(ctx, tx, n.read); err != nil {
		n.log.Info("transaction rejected",
			"receive_id", rid, "uri", tx.URI.String(), "code", protocol.CodeOf(err))
		return nil, err
	}

	rec, err := n.write.Write(ctx, tx.URI, tx.Value)
	if err != nil {
		n.log.Warn("write failed after validation",
			"receive_id", rid, "uri", tx.URI.String(), "code", protocol.CodeOf(err))
		return nil, err
	}

	n.log.Debug("transaction accepted",
		"receive_id", rid, "uri", tx.URI.String(), "ts", rec.TS)
	return rec, nil
}

// ReceiveRaw parses a raw URI string and receives the transaction.
// Malformed addresses are rejected before reaching any backend.
func (n *Node) ReceiveRaw(ctx context.Context, rawURI string, value any) (*protocol.Record, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return nil, protocol.Errorf(protocol.CodeMalformedURI, rawURI, "%v", err)
	}
	return n.Receive(ctx, protocol.Transaction{URI: u, Value: value})
}

// Read looks up a record through the read path.
func (n *Node) Read(ctx context.Context, u uri.URI) (*protocol.Record, error) {
	return n.read.Read(ctx, u)
}

// ReadMulti batches reads through the read path.
func (n *Node) ReadMulti(ctx context.Context, uris []uri.URI) (protocol.MultiRead, error) {
	return n.read.ReadMulti(ctx, uris)
}

// List lists immediate children through the read path.
func (n *Node) List(ctx context.Context, u uri.URI, opts protocol.ListOptions) (protocol.Listing, error) {
	return n.read.List(ctx, u, opts)
}

// Delete removes a record through the write path (deletion is a
// mutation and follows write-path composition: broadcast deletes
// everywhere, sequence deletes first match).
func (n *Node) Delete(ctx context.Context, u uri.URI) error {
	return n.write.Delete(ctx, u)
}

// Health reports the write and read paths' self-checks.
func (n *Node) Health(ctx context.Context) protocol.Health {
	w := n.write.Health(ctx)
	r := n.read.Health(ctx)

	status := protocol.HealthOK
	switch {
	case w.Status == protocol.HealthDown && r.Status == protocol.HealthDown:
		status = protocol.HealthDown
	case w.Status != protocol.HealthOK || r.Status != protocol.HealthOK:
		status = protocol.HealthDegraded
	}
	return protocol.Health{
		Status: status,
		Details: map[string]any{
			"write": w.Status,
			"read":  r.Status,
		},
	}
}

// Programs enumerates the active schema snapshot's program keys.
func (n *Node) Programs() []string {
	return n.registry.Load().Programs()
}

// Reload atomically swaps in a new schema table. In-flight receives
// finish against the snapshot they loaded.
func (n *Node) Reload(t *schema.Table) {
	n.registry.Swap(t)
}

// Close releases both paths. Closing the read path after the write path
// is safe when they share backends: Close is idempotent by contract.
func (n *Node) Close() error {
	err := n.write.Close()
	if rErr := n.read.Close(); rErr != nil && err == nil {
		err = rErr
	}
	return err
}
