// Package store is the analytics-store side of the pipeline: a DuckDB file
// holding the neighborhood dimension and its fact tables. Every run fully
// replaces table contents (truncate + load inside one transaction), so the
// final state of each table is a pure function of the current input files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"barrio-etl/internal/frame"
)

// ColumnDef describes one target-table column.
type ColumnDef struct {
	Name string
	Type string // DuckDB type, e.g. BIGINT, DOUBLE, VARCHAR
}

// TableDef is the fixed target schema for one dataset.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// Load pairs a target table with the normalized frame destined for it.
// A nil or empty frame means the dataset was absent this run: the table is
// still truncated (stale rows must not survive a reload) but nothing is
// inserted.
type Load struct {
	Def   TableDef
	Frame *frame.Frame
}

// Store wraps the DuckDB analytics database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the DuckDB file at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for read-only consumers and tests.
func (s *Store) DB() *sql.DB { return s.db }

// EnsureSchema idempotently creates every target table. Safe on every run.
func (s *Store) EnsureSchema(ctx context.Context, defs []TableDef) error {
	for _, def := range defs {
		stmt, err := createTableStmt(def)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure table %s: %w", def.Name, err)
		}
	}
	return nil
}

// Replace truncates and reloads every target table within one transaction:
// fact tables are cleared before the dimension (fact rows reference the
// dimension and must not dangle even momentarily), then the dimension is
// inserted first, then each fact table. Returns per-table inserted counts.
func (s *Store) Replace(ctx context.Context, dim Load, facts []Load) (map[string]int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Truncate in dependency order: facts first, dimension last.
	for _, f := range facts {
		if err := truncate(ctx, tx, f.Def.Name); err != nil {
			return nil, err
		}
	}
	if err := truncate(ctx, tx, dim.Def.Name); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(facts)+1)

	// Load the dimension before any fact table that references it.
	n, err := insertFrame(ctx, tx, dim)
	if err != nil {
		return nil, err
	}
	counts[dim.Def.Name] = n

	for _, f := range facts {
		if f.Frame == nil || f.Frame.Empty() {
			s.logger.Info("skipping table load, no rows this run", "table", f.Def.Name)
			counts[f.Def.Name] = 0
			continue
		}
		n, err := insertFrame(ctx, tx, f)
		if err != nil {
			return nil, err
		}
		counts[f.Def.Name] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}
	return counts, nil
}

// CountRows returns the row count of one target table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if err := ValidateIdentifier(table); err != nil {
		return 0, fmt.Errorf("invalid table name: %w", err)
	}
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdentifier(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func truncate(ctx context.Context, tx *sql.Tx, table string) error {
	if err := ValidateIdentifier(table); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+QuoteIdentifier(table)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// insertFrame bulk-inserts a frame into its target table using a prepared
// statement over the table's declared column order.
func insertFrame(ctx context.Context, tx *sql.Tx, l Load) (int, error) {
	if l.Frame == nil || l.Frame.Empty() {
		return 0, nil
	}

	cols := make([]string, len(l.Def.Columns))
	placeholders := make([]string, len(l.Def.Columns))
	for i, c := range l.Def.Columns {
		if err := ValidateIdentifier(c.Name); err != nil {
			return 0, fmt.Errorf("table %s: invalid column name: %w", l.Def.Name, err)
		}
		if !l.Frame.HasColumn(c.Name) {
			return 0, fmt.Errorf("table %s: frame is missing column %q", l.Def.Name, c.Name)
		}
		cols[i] = QuoteIdentifier(c.Name)
		placeholders[i] = "?"
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(l.Def.Name),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, fmt.Errorf("prepare insert %s: %w", l.Def.Name, err)
	}
	defer stmt.Close() //nolint:errcheck

	for row := 0; row < l.Frame.NumRows(); row++ {
		values := make([]any, len(l.Def.Columns))
		for i, c := range l.Def.Columns {
			v, err := l.Frame.At(row, c.Name)
			if err != nil {
				return 0, fmt.Errorf("table %s row %d: %w", l.Def.Name, row, err)
			}
			values[i] = v
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("insert %s row %d: %w", l.Def.Name, row, err)
		}
	}
	return l.Frame.NumRows(), nil
}

// createTableStmt builds CREATE TABLE IF NOT EXISTS from a TableDef.
func createTableStmt(def TableDef) (string, error) {
	if err := ValidateIdentifier(def.Name); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", def.Name)
	}
	parts := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		if err := ValidateIdentifier(c.Name); err != nil {
			return "", fmt.Errorf("table %s: invalid column name: %w", def.Name, err)
		}
		if err := ValidateColumnType(c.Type); err != nil {
			return "", fmt.Errorf("table %s column %s: %w", def.Name, c.Name, err)
		}
		parts[i] = QuoteIdentifier(c.Name) + " " + strings.ToUpper(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		QuoteIdentifier(def.Name), strings.Join(parts, ", ")), nil
}
