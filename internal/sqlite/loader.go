package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// loadAllJSONL reads each table's JSONL file from dataDir and inserts the
// records into SQLite in one transaction: all load or none do. Lines that
// are malformed or do not decode into the table's record type are skipped;
// unknown fields are ignored. When a key repeats, the later line wins.
// Returns the number of records loaded.
func loadAllJSONL(ctx context.Context, db *sql.DB, dataDir string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for _, spec := range specs {
		records, err := readJSONL(filepath.Join(dataDir, spec.file))
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", spec.file, err)
		}
		if len(records) == 0 {
			continue
		}

		stmt, err := tx.PrepareContext(ctx, spec.insertSQL("INSERT OR REPLACE"))
		if err != nil {
			return 0, fmt.Errorf("preparing insert for %s: %w", spec.name, err)
		}
		n, err := insertRecords(ctx, stmt, spec, records)
		stmt.Close()
		if err != nil {
			return 0, fmt.Errorf("loading %s into %s: %w", spec.file, spec.name, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return total, nil
}

// insertRecords decodes and inserts records with stmt, returning how many
// were inserted.
func insertRecords(ctx context.Context, stmt *sql.Stmt, spec tableSpec, records []json.RawMessage) (int, error) {
	n := 0
	for _, raw := range records {
		rec, err := types.DecodeRecord(spec.name, raw)
		if err != nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, spec.args(rec)...); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
