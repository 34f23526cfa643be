package models

import (
	"context"
	"time"
)

// Статусы запуска ETL
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusPartial    = "partial"
	RunStatusFailed     = "failed"
)

// ETLRunLog представляет запись о запуске ETL процесса
type ETLRunLog struct {
	RunID                string    `json:"run_id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Status               string    `json:"status"` // "success", "partial", "failed", "in_progress"
	ProductsProcessed    int       `json:"products_processed"`
	ClientsProcessed     int       `json:"clients_processed"`
	SalesProcessed       int       `json:"sales_processed"`
	SalesDropped         int       `json:"sales_dropped"`
	FactsLoaded          int       `json:"facts_loaded"`
	FactsFailed          int       `json:"facts_failed"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// RunCounters содержит счетчики, фиксируемые по завершении запуска
type RunCounters struct {
	ProductsProcessed int
	ClientsProcessed  int
	SalesProcessed    int
	SalesDropped      int
	FactsLoaded       int
	FactsFailed       int
}

// ETLLogRepository представляет репозиторий для работы с журналом запусков ETL
type ETLLogRepository interface {
	// CreateETLLogTable создает таблицу журнала, если она еще не существует
	CreateETLLogTable(ctx context.Context) error

	// CreateLogEntry создает новую запись о запуске ETL
	CreateLogEntry(ctx context.Context, runID string, startTime time.Time) error

	// UpdateLogEntryFinished обновляет запись при завершении ETL (success или partial)
	UpdateLogEntryFinished(ctx context.Context, runID string, endTime time.Time, status string, counters RunCounters) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
	UpdateLogEntryFailure(ctx context.Context, runID string, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
	GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error)

	// GetETLRunStats получает запуски ETL за последние days дней
	GetETLRunStats(ctx context.Context, days int) ([]ETLRunLog, error)

	// GetETLStateMonitor получает сводное состояние ETL процесса
	GetETLStateMonitor(ctx context.Context) (*ETLStateMonitor, error)
}

// ETLStateMonitor предоставляет информацию о текущем состоянии ETL процесса
type ETLStateMonitor struct {
	LastSuccessfulRun       *ETLRunLog `json:"last_successful_run"`
	LastFailedRun           *ETLRunLog `json:"last_failed_run,omitempty"`
	CurrentRun              *ETLRunLog `json:"current_run,omitempty"`
	TotalSuccessfulRuns     int        `json:"total_successful_runs"`
	TotalPartialRuns        int        `json:"total_partial_runs"`
	TotalFailedRuns         int        `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64    `json:"avg_execution_time_seconds"`
}

// ETLMetadata содержит метаданные о запуске ETL
type ETLMetadata struct {
	RunID             string
	LastRunTimestamp  time.Time
	ProductsProcessed int
	ClientsProcessed  int
	SalesProcessed    int
}
