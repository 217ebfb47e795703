package domain

import (
	"context"
	"time"
)

// ETL run status constants.
const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"

	TriggerTypeManual    = "MANUAL"
	TriggerTypeScheduled = "SCHEDULED"
)

// ETLRun is the audit record for one pipeline invocation. Exactly one is
// appended per invocation, whatever the outcome. ID is the metastore
// surrogate key; RunID is the timestamp-derived identifier.
type ETLRun struct {
	ID           string
	RunID        string
	Status       string
	TriggerType  string
	Parameters   map[string]string
	StartedAt    time.Time
	FinishedAt   time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// RunFilter holds filter parameters for querying run records.
type RunFilter struct {
	Status *string
	Limit  int
}

// RunRepository persists ETL run audit records in the metastore.
type RunRepository interface {
	Insert(ctx context.Context, run *ETLRun) error
	GetByRunID(ctx context.Context, runID string) (*ETLRun, error)
	List(ctx context.Context, filter RunFilter) ([]ETLRun, error)
	Count(ctx context.Context) (int64, error)
}

// NewRunID derives a run identifier from a start timestamp with microsecond
// resolution, so rapid successive invocations never collide without any
// external coordination.
func NewRunID(started time.Time) string {
	return started.Format("20060102_150405") + "_" + started.Format(".000000")[1:]
}
