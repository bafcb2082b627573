// Package sqlite implements the SQLite storage backend for docket.
//
// JSONL files in DataDir are the source of truth; SQLite is the query
// engine. Attach rebuilds a fresh database from the JSONL files, and every
// write rewrites the touched table's JSONL file atomically, either at once
// (immediate) or when the store detaches (on_close).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// dbFileName is the SQLite file created inside DataDir.
const dbFileName = "docket.db"

// Backend implements types.Store using SQLite over JSONL files.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*table
	log      *zap.Logger

	syncStrategy string
	pendingMu    sync.Mutex
	pending      map[string]tableSpec // tables whose JSONL is stale (on_close)
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

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables:  make(map[string]*table),
		pending: make(map[string]tableSpec),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("backend", types.BackendSQLite))
	return b
}

// GetTable returns the Table for the given name.
// Returns ErrStoreDetached if not attached, ErrTableNotFound for unknown names.
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

// Attach creates DataDir if needed, builds a fresh SQLite database, and
// loads every JSONL file into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %q is not %s", types.ErrBackendUnknown, config.Backend, types.BackendSQLite)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a disposable cache of the JSONL files.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	for _, spec := range specs {
		if err := ensureJSONL(filepath.Join(dataDir, spec.file)); err != nil {
			db.Close()
			return err
		}
	}

	loaded, err := loadAllJSONL(ctx, db, dataDir)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.pending = make(map[string]tableSpec)
	for _, spec := range specs {
		b.tables[spec.name] = &table{spec: spec, backend: b}
	}
	b.attached = true

	b.log.Debug("attached",
		zap.String("data_dir", dataDir),
		zap.String("sync_strategy", b.syncStrategy),
		zap.Int("records_loaded", loaded))
	return nil
}

// Detach flushes pending JSONL writes and closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPendingLocked(context.Background()); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]*table)
	b.log.Debug("detached")
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// persist brings spec's JSONL file up to date, now or at Detach depending
// on the sync strategy. Under immediate sync the dump reads through q, so a
// write still inside its transaction is included. The caller must hold b.mu.
func (b *Backend) persist(ctx context.Context, q querier, spec tableSpec) error {
	if b.syncStrategy == types.SyncOnClose {
		b.pendingMu.Lock()
		b.pending[spec.name] = spec
		b.pendingMu.Unlock()
		return nil
	}
	return b.writeTableJSONL(ctx, q, spec)
}

// flushPendingLocked rewrites every stale JSONL file. The caller must hold
// the b.mu write lock.
func (b *Backend) flushPendingLocked(ctx context.Context) error {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	for name, spec := range b.pending {
		if err := b.writeTableJSONL(ctx, b.db, spec); err != nil {
			return fmt.Errorf("flush %s: %w", name, err)
		}
		delete(b.pending, name)
	}
	return nil
}

// writeTableJSONL dumps the whole table, ordered by key, to its JSONL file.
func (b *Backend) writeTableJSONL(ctx context.Context, q querier, spec tableSpec) error {
	rows, err := q.QueryContext(ctx, spec.selectSQL()+" ORDER BY "+spec.key())
	if err != nil {
		return fmt.Errorf("querying %s: %w", spec.name, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		rec, err := spec.scan(rows)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", spec.name, err)
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", spec.name, err)
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", spec.name, err)
	}

	path := filepath.Join(b.config.DataDir, spec.file)
	if err := writeJSONL(path, records); err != nil {
		return fmt.Errorf("persisting %s: %w", spec.file, err)
	}
	return nil
}
