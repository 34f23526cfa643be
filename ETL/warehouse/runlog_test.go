package warehouse

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

func TestSQLRunLogRepositoryLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRunLogRepository(db, Postgres)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO etl_run_log (run_id, start_time, status)")).
		WithArgs("run-1", start).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT start_time FROM etl_run_log WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"start_time"}).AddRow(start))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE etl_run_log")).
		WithArgs(end, models.RunStatusPartial, 3, 2, 10, 1, 8, 1, 90.0, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateLogEntry(ctx, "run-1", start))
	require.NoError(t, repo.UpdateLogEntryFinished(ctx, "run-1", end, models.RunStatusPartial, models.RunCounters{
		ProductsProcessed: 3,
		ClientsProcessed:  2,
		SalesProcessed:    10,
		SalesDropped:      1,
		FactsLoaded:       8,
		FactsFailed:       1,
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRunLogRepositoryNoSuccessfulRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRunLogRepository(db, MySQL)

	mock.ExpectQuery("FROM etl_run_log").
		WithArgs(models.RunStatusSuccess, models.RunStatusPartial).
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}))

	run, err := repo.GetLastSuccessfulRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRunLogRepositoryMonitor(t *testing.T) {
	repo := NewMemoryRunLogRepository()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	require.NoError(t, repo.CreateLogEntry(ctx, "a", base))
	require.NoError(t, repo.UpdateLogEntryFinished(ctx, "a", base.Add(10*time.Second), models.RunStatusSuccess, models.RunCounters{FactsLoaded: 5}))

	require.NoError(t, repo.CreateLogEntry(ctx, "b", base.Add(time.Minute)))
	require.NoError(t, repo.UpdateLogEntryFinished(ctx, "b", base.Add(time.Minute+30*time.Second), models.RunStatusPartial, models.RunCounters{FactsFailed: 1}))

	require.NoError(t, repo.CreateLogEntry(ctx, "c", base.Add(2*time.Minute)))
	require.NoError(t, repo.UpdateLogEntryFailure(ctx, "c", base.Add(2*time.Minute+time.Second), "connection refused"))

	require.NoError(t, repo.CreateLogEntry(ctx, "d", base.Add(3*time.Minute)))

	monitor, err := repo.GetETLStateMonitor(ctx)
	require.NoError(t, err)

	require.NotNil(t, monitor.LastSuccessfulRun)
	assert.Equal(t, "b", monitor.LastSuccessfulRun.RunID)
	require.NotNil(t, monitor.LastFailedRun)
	assert.Equal(t, "connection refused", monitor.LastFailedRun.ErrorMessage)
	require.NotNil(t, monitor.CurrentRun)
	assert.Equal(t, "d", monitor.CurrentRun.RunID)
	assert.Equal(t, 1, monitor.TotalSuccessfulRuns)
	assert.Equal(t, 1, monitor.TotalPartialRuns)
	assert.Equal(t, 1, monitor.TotalFailedRuns)
	assert.InDelta(t, 20.0, monitor.AvgExecutionTimeSeconds, 0.001)

	stats, err := repo.GetETLRunStats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, "d", stats[0].RunID)

	assert.Error(t, repo.CreateLogEntry(ctx, "a", base))
}
