// Package postgres implements a Store on PostgreSQL through a pgx pool.
// Every table shares one docket_records relation keyed by
// (table_name, record_key) with the record held as JSONB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

const opTimeout = 5 * time.Second

const schema = `CREATE TABLE IF NOT EXISTS docket_records (
    table_name TEXT NOT NULL,
    record_key TEXT NOT NULL,
    data JSONB NOT NULL,
    PRIMARY KEY (table_name, record_key)
)`

const (
	selectRecord = `SELECT data FROM docket_records WHERE table_name = $1 AND record_key = $2`
	upsertRecord = `INSERT INTO docket_records (table_name, record_key, data) VALUES ($1, $2, $3)
ON CONFLICT (table_name, record_key) DO UPDATE SET data = EXCLUDED.data`
	insertRecord = `INSERT INTO docket_records (table_name, record_key, data) VALUES ($1, $2, $3)
ON CONFLICT (table_name, record_key) DO NOTHING`
)

// Backend implements types.Store over pgxpool.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	pool     *pgxpool.Pool
	tables   map[string]*table
	log      *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the backend logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBackend creates a detached postgres backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{tables: make(map[string]*table), log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("backend", types.BackendPostgres))
	return b
}

// Attach opens the pool, pings, and creates docket_records if missing.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendPostgres {
		return fmt.Errorf("%w: %q is not %s", types.ErrBackendUnknown, config.Backend, types.BackendPostgres)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, config.PostgresConfig.DSN)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	b.pool = pool
	for _, name := range types.StandardTableNames {
		b.tables[name] = &table{name: name, backend: b}
	}
	b.attached = true
	b.log.Debug("attached")
	return nil
}

// Detach closes the pool. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.pool.Close()
	b.pool = nil
	b.attached = false
	b.tables = make(map[string]*table)
	b.log.Debug("detached")
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

func (b *Backend) conn() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.pool, nil
}

type table struct {
	name    string
	backend *Backend
}

var _ types.Table = (*table)(nil)

func (t *table) Get(ctx context.Context, key string) (any, error) {
	pool, err := t.backend.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err = pool.QueryRow(ctx, selectRecord, t.name, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", t.name, key, err)
	}
	return types.DecodeRecord(t.name, raw)
}

func (t *table) Set(ctx context.Context, key string, data any) error {
	raw, err := types.EncodeRecord(t.name, data)
	if err != nil {
		return err
	}
	pool, err := t.backend.conn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := pool.Exec(ctx, upsertRecord, t.name, key, raw); err != nil {
		return fmt.Errorf("setting %s %q: %w", t.name, key, err)
	}
	return nil
}

func (t *table) Create(ctx context.Context, key string, data any) error {
	raw, err := types.EncodeRecord(t.name, data)
	if err != nil {
		return err
	}
	pool, err := t.backend.conn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := pool.Exec(ctx, insertRecord, t.name, key, raw)
	if err != nil {
		return fmt.Errorf("creating %s %q: %w", t.name, key, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrAlreadyExists
	}
	return nil
}
