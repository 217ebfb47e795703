package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	internaldb "barrio-etl/internal/db"
	"barrio-etl/internal/domain"
)

func setupRunRepo(t *testing.T) *RunRepo {
	t.Helper()
	return NewRunRepo(internaldb.OpenTestSQLite(t))
}

func newRun(started time.Time, status string) *domain.ETLRun {
	return &domain.ETLRun{
		RunID:       domain.NewRunID(started),
		Status:      status,
		TriggerType: domain.TriggerTypeManual,
		Parameters:  map[string]string{"raw_base_dir": "/data/raw"},
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Second),
	}
}

func TestRunRepo_InsertAndGet(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := context.Background()

	run := newRun(time.Now(), domain.RunStatusSuccess)
	require.NoError(t, repo.Insert(ctx, run))
	assert.NotEmpty(t, run.ID)

	got, err := repo.GetByRunID(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, domain.RunStatusSuccess, got.Status)
	assert.Equal(t, "/data/raw", got.Parameters["raw_base_dir"])
	assert.Nil(t, got.ErrorMessage)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Millisecond)
}

func TestRunRepo_InsertFailedRunKeepsError(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := context.Background()

	run := newRun(time.Now(), domain.RunStatusFailed)
	msg := "no demographics file found"
	run.ErrorMessage = &msg
	require.NoError(t, repo.Insert(ctx, run))

	got, err := repo.GetByRunID(ctx, run.RunID)
	require.NoError(t, err)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
}

func TestRunRepo_DuplicateRunIDConflicts(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := context.Background()

	started := time.Now()
	require.NoError(t, repo.Insert(ctx, newRun(started, domain.RunStatusSuccess)))
	require.Error(t, repo.Insert(ctx, newRun(started, domain.RunStatusSuccess)))
}

func TestRunRepo_GetMissing(t *testing.T) {
	repo := setupRunRepo(t)

	_, err := repo.GetByRunID(context.Background(), "20200101_000000_000000")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRunRepo_ListNewestFirstWithFilter(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, newRun(base, domain.RunStatusSuccess)))
	require.NoError(t, repo.Insert(ctx, newRun(base.Add(time.Minute), domain.RunStatusFailed)))
	require.NoError(t, repo.Insert(ctx, newRun(base.Add(2*time.Minute), domain.RunStatusSuccess)))

	all, err := repo.List(ctx, domain.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt))

	failed := domain.RunStatusFailed
	onlyFailed, err := repo.List(ctx, domain.RunFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, onlyFailed, 1)
	assert.Equal(t, domain.RunStatusFailed, onlyFailed[0].Status)

	limited, err := repo.List(ctx, domain.RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
