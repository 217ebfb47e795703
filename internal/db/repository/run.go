// Package repository implements metastore persistence for domain types.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"barrio-etl/internal/domain"
)

// sqliteTimeLayout is the timestamp format stored in the metastore.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// Compile-time check.
var _ domain.RunRepository = (*RunRepo)(nil)

// RunRepo implements domain.RunRepository using SQLite.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert appends one finished run record.
func (r *RunRepo) Insert(ctx context.Context, run *domain.ETLRun) error {
	paramsJSON, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	if run.ID == "" {
		run.ID = newID()
	}
	if run.TriggerType == "" {
		run.TriggerType = domain.TriggerTypeManual
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO etl_runs (id, run_id, status, trigger_type, parameters, started_at, finished_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunID,
		run.Status,
		run.TriggerType,
		string(paramsJSON),
		run.StartedAt.UTC().Format(sqliteTimeLayout),
		run.FinishedAt.UTC().Format(sqliteTimeLayout),
		nullStrFromPtr(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert etl run %s: %w", run.RunID, err)
	}
	return nil
}

// GetByRunID returns the run record with the given timestamp-derived ID.
func (r *RunRepo) GetByRunID(ctx context.Context, runID string) (*domain.ETLRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, trigger_type, parameters, started_at, finished_at, error_message, created_at
		FROM etl_runs WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("run %q not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns run records, newest first, optionally filtered by status.
func (r *RunRepo) List(ctx context.Context, filter domain.RunFilter) ([]domain.ETLRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, status, trigger_type, parameters, started_at, finished_at, error_message, created_at
		FROM etl_runs`
	args := []any{}
	if filter.Status != nil {
		query += " WHERE status = ?"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var runs []domain.ETLRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Count returns the total number of run records.
func (r *RunRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM etl_runs").Scan(&n)
	return n, err
}

// scanner abstracts *sql.Row and *sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.ETLRun, error) {
	var (
		run        domain.ETLRun
		params     string
		startedAt  string
		finishedAt string
		createdAt  string
		errMsg     sql.NullString
	)
	if err := s.Scan(&run.ID, &run.RunID, &run.Status, &run.TriggerType,
		&params, &startedAt, &finishedAt, &errMsg, &createdAt); err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(params), &run.Parameters)
	if run.Parameters == nil {
		run.Parameters = map[string]string{}
	}

	run.StartedAt, _ = time.Parse(sqliteTimeLayout, startedAt)
	run.FinishedAt, _ = time.Parse(sqliteTimeLayout, finishedAt)
	run.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)

	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}

func newID() string {
	return uuid.New().String()
}

func nullStrFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
