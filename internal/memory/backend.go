// Package memory implements a process-local Store backed by maps.
// It is the fake behind registry tests and the backend for serve --ephemeral.
package memory

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// Backend implements types.Store with one map per table.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	tables   map[string]*table
}

// NewBackend creates a detached memory backend.
func NewBackend() *Backend {
	return &Backend{tables: make(map[string]*table)}
}

// Attach validates config and creates empty tables.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(_ context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	for _, name := range types.StandardTableNames {
		b.tables[name] = &table{backend: b, name: name, rows: make(map[string]any)}
	}
	b.attached = true
	return nil
}

// Detach drops all records. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.tables = make(map[string]*table)
	return nil
}

// GetTable returns the named table.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// table holds cloned records keyed by their ledger key.
type table struct {
	backend *Backend
	name    string

	mu   sync.RWMutex
	rows map[string]any
}

var _ types.Table = (*table)(nil)

func (t *table) Get(_ context.Context, key string) (any, error) {
	if err := t.checkAttached(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.rows[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	return types.CloneRecord(t.name, rec)
}

func (t *table) Set(_ context.Context, key string, data any) error {
	if err := t.checkAttached(); err != nil {
		return err
	}
	rec, err := types.CloneRecord(t.name, data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows[key] = rec
	return nil
}

func (t *table) Create(_ context.Context, key string, data any) error {
	if err := t.checkAttached(); err != nil {
		return err
	}
	rec, err := types.CloneRecord(t.name, data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[key]; ok {
		return types.ErrAlreadyExists
	}
	t.rows[key] = rec
	return nil
}

func (t *table) checkAttached() error {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if !t.backend.attached {
		return types.ErrStoreDetached
	}
	return nil
}
