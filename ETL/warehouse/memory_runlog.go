package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// MemoryRunLogRepository хранит журнал запусков в памяти процесса
type MemoryRunLogRepository struct {
	mu   sync.Mutex
	runs map[string]*models.ETLRunLog
	now  func() time.Time
}

// NewMemoryRunLogRepository создает пустой журнал запусков
func NewMemoryRunLogRepository() *MemoryRunLogRepository {
	return &MemoryRunLogRepository{
		runs: make(map[string]*models.ETLRunLog),
		now:  time.Now,
	}
}

func (r *MemoryRunLogRepository) CreateETLLogTable(ctx context.Context) error {
	return nil
}

func (r *MemoryRunLogRepository) CreateLogEntry(ctx context.Context, runID string, startTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[runID]; ok {
		return fmt.Errorf("запись о запуске %s уже существует", runID)
	}
	r.runs[runID] = &models.ETLRunLog{
		RunID:     runID,
		StartTime: startTime,
		Status:    models.RunStatusInProgress,
	}
	return nil
}

func (r *MemoryRunLogRepository) UpdateLogEntryFinished(ctx context.Context, runID string, endTime time.Time, status string, counters models.RunCounters) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return fmt.Errorf("запись о запуске %s не найдена", runID)
	}
	run.EndTime = endTime
	run.Status = status
	run.ProductsProcessed = counters.ProductsProcessed
	run.ClientsProcessed = counters.ClientsProcessed
	run.SalesProcessed = counters.SalesProcessed
	run.SalesDropped = counters.SalesDropped
	run.FactsLoaded = counters.FactsLoaded
	run.FactsFailed = counters.FactsFailed
	run.ExecutionTimeSeconds = endTime.Sub(run.StartTime).Seconds()
	return nil
}

func (r *MemoryRunLogRepository) UpdateLogEntryFailure(ctx context.Context, runID string, endTime time.Time, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return fmt.Errorf("запись о запуске %s не найдена", runID)
	}
	run.EndTime = endTime
	run.Status = models.RunStatusFailed
	run.ErrorMessage = errorMessage
	run.ExecutionTimeSeconds = endTime.Sub(run.StartTime).Seconds()
	return nil
}

func (r *MemoryRunLogRepository) GetLastSuccessfulRun(ctx context.Context) (*models.ETLRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last(func(l *models.ETLRunLog) time.Time { return l.EndTime },
		models.RunStatusSuccess, models.RunStatusPartial), nil
}

func (r *MemoryRunLogRepository) GetETLRunStats(ctx context.Context, days int) ([]models.ETLRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := r.now().AddDate(0, 0, -days)
	var logs []models.ETLRunLog
	for _, run := range r.runs {
		if !run.StartTime.Before(since) {
			logs = append(logs, *run)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartTime.After(logs[j].StartTime)
	})
	return logs, nil
}

func (r *MemoryRunLogRepository) GetETLStateMonitor(ctx context.Context) (*models.ETLStateMonitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEnd := func(l *models.ETLRunLog) time.Time { return l.EndTime }
	monitor := &models.ETLStateMonitor{
		LastSuccessfulRun: r.last(byEnd, models.RunStatusSuccess, models.RunStatusPartial),
		LastFailedRun:     r.last(byEnd, models.RunStatusFailed),
		CurrentRun:        r.last(func(l *models.ETLRunLog) time.Time { return l.StartTime }, models.RunStatusInProgress),
	}
	if monitor.CurrentRun != nil {
		monitor.CurrentRun.ExecutionTimeSeconds = r.now().Sub(monitor.CurrentRun.StartTime).Seconds()
	}

	var total float64
	var finished int
	for _, run := range r.runs {
		switch run.Status {
		case models.RunStatusSuccess:
			monitor.TotalSuccessfulRuns++
		case models.RunStatusPartial:
			monitor.TotalPartialRuns++
		case models.RunStatusFailed:
			monitor.TotalFailedRuns++
			continue
		default:
			continue
		}
		total += run.ExecutionTimeSeconds
		finished++
	}
	if finished > 0 {
		monitor.AvgExecutionTimeSeconds = total / float64(finished)
	}

	return monitor, nil
}

// last возвращает копию последней записи с одним из статусов. Вызывается под мьютексом
func (r *MemoryRunLogRepository) last(by func(*models.ETLRunLog) time.Time, statuses ...string) *models.ETLRunLog {
	var found *models.ETLRunLog
	for _, run := range r.runs {
		if !hasStatus(run.Status, statuses) {
			continue
		}
		if found == nil || by(run).After(by(found)) {
			found = run
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

func hasStatus(status string, statuses []string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
