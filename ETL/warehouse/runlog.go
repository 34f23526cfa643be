package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

const runLogColumns = `
		run_id, start_time, end_time, status,
		products_processed, clients_processed, sales_processed, sales_dropped,
		facts_loaded, facts_failed,
		COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)`

// SQLRunLogRepository реализация ETLLogRepository поверх database/sql
type SQLRunLogRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLRunLogRepository создает новый экземпляр SQLRunLogRepository
func NewSQLRunLogRepository(db *sql.DB, dialect Dialect) *SQLRunLogRepository {
	return &SQLRunLogRepository{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

// CreateETLLogTable создает таблицу для логирования ETL процесса, если она не существует
func (r *SQLRunLogRepository) CreateETLLogTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS etl_run_log (
		run_id VARCHAR(36) PRIMARY KEY,
		start_time %[1]s NOT NULL,
		end_time %[1]s NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'in_progress',
		products_processed INT NOT NULL DEFAULT 0,
		clients_processed INT NOT NULL DEFAULT 0,
		sales_processed INT NOT NULL DEFAULT 0,
		sales_dropped INT NOT NULL DEFAULT 0,
		facts_loaded INT NOT NULL DEFAULT 0,
		facts_failed INT NOT NULL DEFAULT 0,
		error_message %[2]s,
		execution_time_seconds DOUBLE PRECISION
	)`, r.dialect.timestampType, r.dialect.textType)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}
	return nil
}

// CreateLogEntry создает новую запись о запуске ETL
func (r *SQLRunLogRepository) CreateLogEntry(ctx context.Context, runID string, startTime time.Time) error {
	query := r.dialect.Rebind(`
	INSERT INTO etl_run_log (run_id, start_time, status)
	VALUES (?, ?, 'in_progress')`)

	if _, err := r.db.ExecContext(ctx, query, runID, startTime); err != nil {
		return fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}
	return nil
}

// UpdateLogEntryFinished обновляет запись при завершении ETL (success или partial)
func (r *SQLRunLogRepository) UpdateLogEntryFinished(ctx context.Context, runID string, endTime time.Time, status string, counters models.RunCounters) error {
	executionTime, err := r.executionTime(ctx, runID, endTime)
	if err != nil {
		return err
	}

	query := r.dialect.Rebind(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		products_processed = ?,
		clients_processed = ?,
		sales_processed = ?,
		sales_dropped = ?,
		facts_loaded = ?,
		facts_failed = ?,
		execution_time_seconds = ?
	WHERE run_id = ?`)

	_, err = r.db.ExecContext(ctx, query,
		endTime,
		status,
		counters.ProductsProcessed,
		counters.ClientsProcessed,
		counters.SalesProcessed,
		counters.SalesDropped,
		counters.FactsLoaded,
		counters.FactsFailed,
		executionTime,
		runID,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *SQLRunLogRepository) UpdateLogEntryFailure(ctx context.Context, runID string, endTime time.Time, errorMessage string) error {
	executionTime, err := r.executionTime(ctx, runID, endTime)
	if err != nil {
		return err
	}

	query := r.dialect.Rebind(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'failed',
		error_message = ?,
		execution_time_seconds = ?
	WHERE run_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, endTime, errorMessage, executionTime, runID); err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL.
// Частично успешные запуски тоже учитываются
func (r *SQLRunLogRepository) GetLastSuccessfulRun(ctx context.Context) (*models.ETLRunLog, error) {
	return r.lastWithStatus(ctx, "end_time", models.RunStatusSuccess, models.RunStatusPartial)
}

// GetETLRunStats получает запуски ETL за последние days дней
func (r *SQLRunLogRepository) GetETLRunStats(ctx context.Context, days int) ([]models.ETLRunLog, error) {
	since := r.now().AddDate(0, 0, -days)
	query := r.dialect.Rebind(`
	SELECT` + runLogColumns + `
	FROM etl_run_log
	WHERE start_time >= ?
	ORDER BY start_time DESC`)

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}
	defer rows.Close()

	var logs []models.ETLRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}

	return logs, nil
}

// GetETLStateMonitor получает информацию о текущем состоянии ETL процесса
func (r *SQLRunLogRepository) GetETLStateMonitor(ctx context.Context) (*models.ETLStateMonitor, error) {
	lastSuccessful, err := r.GetLastSuccessfulRun(ctx)
	if err != nil {
		return nil, err
	}

	lastFailed, err := r.lastWithStatus(ctx, "end_time", models.RunStatusFailed)
	if err != nil {
		return nil, err
	}

	currentRun, err := r.lastWithStatus(ctx, "start_time", models.RunStatusInProgress)
	if err != nil {
		return nil, err
	}
	if currentRun != nil {
		currentRun.ExecutionTimeSeconds = r.now().Sub(currentRun.StartTime).Seconds()
	}

	monitor := &models.ETLStateMonitor{
		LastSuccessfulRun: lastSuccessful,
		LastFailedRun:     lastFailed,
		CurrentRun:        currentRun,
	}

	query := r.dialect.Rebind(`
	SELECT
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(CASE WHEN status IN (?, ?) THEN execution_time_seconds ELSE NULL END), 0)
	FROM etl_run_log`)

	err = r.db.QueryRowContext(ctx, query,
		models.RunStatusSuccess,
		models.RunStatusPartial,
		models.RunStatusFailed,
		models.RunStatusSuccess,
		models.RunStatusPartial,
	).Scan(
		&monitor.TotalSuccessfulRuns,
		&monitor.TotalPartialRuns,
		&monitor.TotalFailedRuns,
		&monitor.AvgExecutionTimeSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}

	return monitor, nil
}

func (r *SQLRunLogRepository) lastWithStatus(ctx context.Context, orderBy string, statuses ...string) (*models.ETLRunLog, error) {
	args := make([]any, len(statuses))
	in := ""
	for i, s := range statuses {
		if i > 0 {
			in += ", "
		}
		in += "?"
		args[i] = s
	}

	query := r.dialect.Rebind(`
	SELECT` + runLogColumns + `
	FROM etl_run_log
	WHERE status IN (` + in + `)
	ORDER BY ` + orderBy + ` DESC
	LIMIT 1`)

	log, err := scanRunLog(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении информации о запуске ETL: %w", err)
	}
	return log, nil
}

func (r *SQLRunLogRepository) executionTime(ctx context.Context, runID string, endTime time.Time) (float64, error) {
	var startTime time.Time
	query := r.dialect.Rebind("SELECT start_time FROM etl_run_log WHERE run_id = ?")
	if err := r.db.QueryRowContext(ctx, query, runID).Scan(&startTime); err != nil {
		return 0, fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}
	return endTime.Sub(startTime).Seconds(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunLog(s scanner) (*models.ETLRunLog, error) {
	var log models.ETLRunLog
	var endTime sql.NullTime

	err := s.Scan(
		&log.RunID, &log.StartTime, &endTime, &log.Status,
		&log.ProductsProcessed, &log.ClientsProcessed, &log.SalesProcessed, &log.SalesDropped,
		&log.FactsLoaded, &log.FactsFailed,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		log.EndTime = endTime.Time
	}
	return &log, nil
}
