// Package journal keeps a local DuckDB record of the session: the quote
// batches that were observed and the trades that were closed. Each table is
// mirrored to a parquet file after every write so the record survives a
// restart. The journal is a cache; the backend stays the source of truth.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// table is one DuckDB table persisted to one parquet file.
type table struct {
	db         *sql.DB
	outputPath string
	name       string
	schema     string
	conflict   string
	orderBy    string
	mu         sync.Mutex
}

func (t *table) initialize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, t.schema)); err != nil {
		db.Close()

		return fmt.Errorf("failed to create %s table: %w", t.name, err)
	}

	// Reload the previous session. An unreadable file is overwritten on the next export.
	if _, err := os.Stat(t.outputPath); err == nil {
		_, _ = db.Exec(fmt.Sprintf(
			"INSERT INTO %s SELECT * FROM read_parquet('%s') ON CONFLICT %s DO NOTHING",
			t.name, t.outputPath, t.conflict,
		))
	}

	t.db = db

	return nil
}

// exec runs the builder's statement and exports the table. Callers hold no lock.
func (t *table) exec(builder squirrel.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	if _, err := t.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to write %s: %w", t.name, err)
	}

	return t.export()
}

func (t *table) flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	return t.export()
}

func (t *table) export() error {
	_, err := t.db.Exec(fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY %s) TO '%s' (FORMAT PARQUET)", t.name, t.orderBy, t.outputPath))
	if err != nil {
		return fmt.Errorf("failed to export to parquet: %w", err)
	}

	return nil
}

// query runs fn with the database under the table lock.
func (t *table) query(fn func(db *sql.DB) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return fmt.Errorf("writer not initialized")
	}

	return fn(t.db)
}

func (t *table) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db == nil {
		return nil
	}

	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	t.db = nil

	return nil
}
