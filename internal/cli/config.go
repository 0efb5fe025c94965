package cli

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stratum/internal/backend"
	"github.com/roach88/stratum/internal/backend/badgerstore"
	"github.com/roach88/stratum/internal/backend/memory"
	"github.com/roach88/stratum/internal/backend/remote"
	"github.com/roach88/stratum/internal/backend/sqlitestore"
	"github.com/roach88/stratum/internal/combinator"
	"github.com/roach88/stratum/internal/content"
	"github.com/roach88/stratum/internal/node"
	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/schema"
	"github.com/roach88/stratum/internal/validator"
)

// Composition modes for multiple backends.
const (
	CompositionSingle    = "single"
	CompositionBroadcast = "broadcast"
	CompositionSequence  = "sequence"
)

// Config is the node wiring loaded from YAML: backends, how they
// compose, and the program table. Configuration faults are fatal at
// startup, before any transaction is accepted.
type Config struct {
	Composition string          `yaml:"composition"`
	Backends    []BackendConfig `yaml:"backends"`
	Programs    []ProgramConfig `yaml:"programs"`
}

// BackendConfig wires one storage backend.
type BackendConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // memory | sqlite | badger | remote
	Path     string `yaml:"path,omitempty"`
	URL      string `yaml:"url,omitempty"`
	InMemory bool   `yaml:"in_memory,omitempty"`
}

// ProgramConfig binds a program key to a named validation program.
type ProgramConfig struct {
	Key        string `yaml:"key"`
	Program    string `yaml:"program"` // accept | reject | immutable | hash | link | signed-link | envelope | cue
	Message    string `yaml:"message,omitempty"`
	Schema     string `yaml:"schema,omitempty"`      // inline CUE source (program: cue)
	SchemaFile string `yaml:"schema_file,omitempty"` // CUE source path (program: cue)
}

// LoadConfig reads and validates a node configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("config: at least one backend is required")
	}
	if c.Composition == "" {
		c.Composition = CompositionSingle
	}
	switch c.Composition {
	case CompositionSingle, CompositionBroadcast, CompositionSequence:
	default:
		return fmt.Errorf("config: unknown composition %q", c.Composition)
	}
	if len(c.Programs) == 0 {
		return fmt.Errorf("config: at least one program is required")
	}
	seen := make(map[string]bool)
	for _, p := range c.Programs {
		if p.Key == "" {
			return fmt.Errorf("config: program with empty key")
		}
		if seen[p.Key] {
			return fmt.Errorf("config: duplicate program key %q", p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// BuildTable compiles the program list into a schema table.
func BuildTable(cfg *Config) (*schema.Table, error) {
	programs := make(map[string]protocol.Validator, len(cfg.Programs))
	for _, p := range cfg.Programs {
		v, err := buildProgram(p)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Key, err)
		}
		programs[p.Key] = v
	}
	return schema.New(programs), nil
}

func buildProgram(p ProgramConfig) (protocol.Validator, error) {
	switch p.Program {
	case "accept":
		return validator.Accept(), nil
	case "reject":
		msg := p.Message
		if msg == "" {
			msg = "namespace rejects all writes"
		}
		return validator.Reject(msg), nil
	case "immutable":
		return content.ImmutableValidator(), nil
	case "hash":
		return content.HashValidator(), nil
	case "link":
		return content.LinkValidator(), nil
	case "signed-link":
		return content.SignedLinkValidator(), nil
	case "envelope":
		return validator.Envelope(), nil
	case "cue":
		source := p.Schema
		if source == "" && p.SchemaFile != "" {
			raw, err := os.ReadFile(p.SchemaFile)
			if err != nil {
				return nil, fmt.Errorf("read cue schema: %w", err)
			}
			source = string(raw)
		}
		if source == "" {
			return nil, fmt.Errorf("cue program requires schema or schema_file")
		}
		return validator.CUESchema(source)
	default:
		return nil, fmt.Errorf("unknown program %q", p.Program)
	}
}

// BuildNode constructs the configured node. The returned node owns its
// backends; Close releases them.
func BuildNode(cfg *Config, log *slog.Logger) (*node.Node, error) {
	table, err := BuildTable(cfg)
	if err != nil {
		return nil, err
	}

	backends := make([]protocol.Backend, 0, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		be, err := buildBackend(bc, table, log)
		if err != nil {
			for _, prev := range backends {
				prev.Close()
			}
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}
		backends = append(backends, be)
	}

	var path protocol.Backend
	switch cfg.Composition {
	case CompositionBroadcast:
		path = combinator.NewBroadcast(backends, combinator.WithLogger(log))
	case CompositionSequence:
		path = combinator.NewSequence(backends, combinator.WithLogger(log))
	default:
		path = backends[0]
	}

	registry, err := schema.NewRegistry(table)
	if err != nil {
		return nil, err
	}
	return node.New(path, path, registry, node.WithLogger(log)), nil
}

func buildBackend(bc BackendConfig, table *schema.Table, log *slog.Logger) (protocol.Backend, error) {
	name := bc.Name
	if name == "" {
		name = bc.Kind
	}
	switch bc.Kind {
	case "memory":
		return backend.NewStore(name, memory.New(), table, backend.WithLogger(log)), nil
	case "sqlite":
		if bc.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires path")
		}
		engine, err := sqlitestore.Open(bc.Path)
		if err != nil {
			return nil, err
		}
		return backend.NewStore(name, engine, table, backend.WithLogger(log)), nil
	case "badger":
		cfg := badgerstore.DefaultConfig(bc.Path)
		if bc.InMemory {
			cfg = badgerstore.InMemoryConfig()
		}
		cfg.Logger = log
		engine, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, err
		}
		return backend.NewStore(name, engine, table, backend.WithLogger(log)), nil
	case "remote":
		if bc.URL == "" {
			return nil, fmt.Errorf("remote backend requires url")
		}
		return remote.New(bc.URL)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", bc.Kind)
	}
}
