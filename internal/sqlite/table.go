package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// tableSpec describes how one record type maps onto a SQLite table and its
// JSONL file. columns[0] is the primary key.
type tableSpec struct {
	name    string
	file    string
	columns []string
	args    func(rec any) []any
	scan    func(row rowScanner) (any, error)
}

func (s tableSpec) key() string { return s.columns[0] }

func (s tableSpec) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.columns, ", "), s.name)
}

func (s tableSpec) insertSQL(verb string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.columns)), ", ")
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, s.name, strings.Join(s.columns, ", "), placeholders)
}

// upsertSQL overwrites every non-key column on a key collision.
func (s tableSpec) upsertSQL() string {
	sets := make([]string, 0, len(s.columns)-1)
	for _, c := range s.columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf("%s ON CONFLICT(%s) DO UPDATE SET %s", s.insertSQL("INSERT"), s.key(), strings.Join(sets, ", "))
}

// createSQL inserts only when the key is free.
func (s tableSpec) createSQL() string {
	return fmt.Sprintf("%s ON CONFLICT(%s) DO NOTHING", s.insertSQL("INSERT"), s.key())
}

// specs lists every table in load order.
var specs = []tableSpec{contractsSpec, appointmentsSpec}

// table implements types.Table for one tableSpec. Reads take the backend
// read lock, writes the write lock, so a Create's check and insert cannot
// interleave with another write.
type table struct {
	spec    tableSpec
	backend *Backend
}

var _ types.Table = (*table)(nil)

// Get retrieves the record stored under key.
func (t *table) Get(ctx context.Context, key string) (any, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if !t.backend.attached {
		return nil, types.ErrStoreDetached
	}

	row := t.backend.db.QueryRowContext(ctx, t.spec.selectSQL()+" WHERE "+t.spec.key()+" = ?", key)
	rec, err := t.spec.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", t.spec.name, key, err)
	}
	return rec, nil
}

// Set upserts data under key and persists the table's JSONL file. The row
// commits only once the JSONL write has succeeded.
func (t *table) Set(ctx context.Context, key string, data any) error {
	rec, err := types.CloneRecord(t.spec.name, data)
	if err != nil {
		return err
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return types.ErrStoreDetached
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		args := withKey(t.spec.args(rec), key)
		if _, err := tx.ExecContext(ctx, t.spec.upsertSQL(), args...); err != nil {
			return fmt.Errorf("persisting %s %q: %w", t.spec.name, key, err)
		}
		return t.backend.persist(ctx, tx, t.spec)
	})
}

// Create inserts data under key unless a record is already there. As with
// Set, a failed JSONL write rolls the insert back.
func (t *table) Create(ctx context.Context, key string, data any) error {
	rec, err := types.CloneRecord(t.spec.name, data)
	if err != nil {
		return err
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if !t.backend.attached {
		return types.ErrStoreDetached
	}

	return t.inTx(ctx, func(tx *sql.Tx) error {
		args := withKey(t.spec.args(rec), key)
		res, err := tx.ExecContext(ctx, t.spec.createSQL(), args...)
		if err != nil {
			return fmt.Errorf("creating %s %q: %w", t.spec.name, key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("creating %s %q: %w", t.spec.name, key, err)
		}
		if n == 0 {
			return types.ErrAlreadyExists
		}
		return t.backend.persist(ctx, tx, t.spec)
	})
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (t *table) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.backend.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", t.spec.name, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.spec.name, err)
	}
	return nil
}

// withKey forces the primary-key argument to key. The table key, not the
// record's own key field, decides where a record lives.
func withKey(args []any, key string) []any {
	args[0] = key
	return args
}
