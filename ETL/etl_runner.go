package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/LilVoxy/sales_warehouse/ETL/config"
	"github.com/LilVoxy/sales_warehouse/ETL/extractors"
	"github.com/LilVoxy/sales_warehouse/ETL/load"
	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/rejects"
	"github.com/LilVoxy/sales_warehouse/ETL/status"
	"github.com/LilVoxy/sales_warehouse/ETL/summary"
	"github.com/LilVoxy/sales_warehouse/ETL/transform"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
	"github.com/LilVoxy/sales_warehouse/ETL/warehouse"
)

// store - хранилище, в которое загружаются данные и по которому строится сводка
type store interface {
	load.Warehouse
	summary.Counter
}

// RunOutcome - итог одного запуска ETL
type RunOutcome struct {
	RunID    string
	Status   string
	Summary  *summary.Summary
	Load     *load.LoadResult
	Stats    models.NormalizationStats
	Rejected int
	Warnings int64
	Duration time.Duration
}

type ETLRunner struct {
	config        config.ETLConfig
	dbConnections *config.DBConnections
	logger        *utils.ETLLogger
	extractor     *extractors.Extractor
	transformer   *transform.Transformer
	loadManager   *load.LoadManager
	store         store
	etlLogRepo    models.ETLLogRepository
	summaries     *status.SummaryStore
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner(ctx context.Context, cfg config.ETLConfig, logger *utils.ETLLogger) (*ETLRunner, error) {
	logger.Info("Инициализация ETL Runner",
		"source", cfg.Source.Type,
		"warehouse", cfg.Warehouse.Driver,
	)

	// Подключаемся к базам данных
	connections, err := config.ConnectDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базам данных: %w", err)
	}

	r := &ETLRunner{
		config:        cfg,
		dbConnections: connections,
		logger:        logger,
		transformer:   transform.NewTransformer(cfg.Normalize, logger),
		summaries:     &status.SummaryStore{},
	}

	source, err := newSource(cfg.Source, connections, logger)
	if err != nil {
		config.CloseDatabases(connections, logger)
		return nil, err
	}
	r.extractor = extractors.NewExtractor(source, logger)

	if cfg.Warehouse.Driver == config.DriverMemory {
		r.store = warehouse.NewMemoryWarehouse()
		r.etlLogRepo = warehouse.NewMemoryRunLogRepository()
	} else {
		dialect, err := warehouse.DialectFor(cfg.Warehouse.Driver)
		if err != nil {
			config.CloseDatabases(connections, logger)
			return nil, err
		}
		r.store = warehouse.NewSQLWarehouse(connections.Warehouse, dialect)
		if cfg.ETL.RunLog {
			r.etlLogRepo = warehouse.NewSQLRunLogRepository(connections.Warehouse, dialect)
		} else {
			r.etlLogRepo = warehouse.NewMemoryRunLogRepository()
		}
	}

	r.loadManager = load.NewLoadManager(r.store, logger, cfg.Load)
	return r, nil
}

func newSource(cfg config.SourceConfig, connections *config.DBConnections, logger *utils.ETLLogger) (extractors.Source, error) {
	switch cfg.Type {
	case config.SourceCSV:
		return extractors.NewCSVSource(cfg.Dir, extractors.CSVFiles{
			Products: cfg.ProductsFile,
			Clients:  cfg.ClientsFile,
			Sales:    cfg.SalesFile,
		}, logger), nil
	case config.SourceSQL:
		return extractors.NewSQLSource(connections.Source, extractors.SQLTables{
			Products: cfg.ProductsTable,
			Clients:  cfg.ClientsTable,
			Sales:    cfg.SalesTable,
		}, logger), nil
	default:
		return nil, fmt.Errorf("неизвестный тип источника: %q", cfg.Type)
	}
}

// Close закрывает соединения с базами данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseDatabases(r.dbConnections, r.logger)
}

// InitLog создает таблицу журнала запусков
func (r *ETLRunner) InitLog(ctx context.Context) error {
	if err := r.etlLogRepo.CreateETLLogTable(ctx); err != nil {
		return fmt.Errorf("ошибка при создании таблицы логов ETL: %w", err)
	}
	return nil
}

// Summary собирает сводку по текущему содержимому хранилища
func (r *ETLRunner) Summary(ctx context.Context) (*summary.Summary, error) {
	return summary.Collect(ctx, r.store)
}

// ExecuteETL выполняет полный ETL процесс.
// Ошибка означает аварийное завершение: транзакция отменена, сводки нет
func (r *ETLRunner) ExecuteETL(ctx context.Context) (*RunOutcome, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	warningsBefore := logger.Warnings()

	if r.config.ETL.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ETL.Timeout)
		defer cancel()
	}

	logger.Info("Запуск ETL процесса")

	// Создаем запись в журнале ETL
	if err := r.etlLogRepo.CreateLogEntry(ctx, runID, startTime); err != nil {
		logger.Error("Ошибка при создании записи в журнале ETL", "error", err)
		return nil, fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	outcome := &RunOutcome{RunID: runID, Status: models.RunStatusFailed}
	fail := func(phase string, err error) (*RunOutcome, error) {
		err = fmt.Errorf("ошибка в фазе %s: %w", phase, err)
		logger.Error("ETL процесс прерван", "phase", phase, "error", err)
		r.updateETLRunLogFailure(ctx, logger, runID, err.Error())
		outcome.Duration = time.Since(startTime)
		outcome.Warnings = logger.Warnings() - warningsBefore
		logger.LogETLComplete(startTime, outcome.Status)
		return outcome, err
	}

	// 1. Фаза извлечения данных (Extract)
	extractedData, err := r.extractor.Extract(ctx)
	if err != nil {
		return fail("Extract", err)
	}

	// 2. Фаза трансформации данных (Transform)
	transformedData, err := r.transformer.Transform(extractedData)
	if err != nil {
		return fail("Transform", err)
	}
	transformedData.Metadata.RunID = runID
	outcome.Stats = transformedData.Stats

	// 3. Фаза загрузки данных (Load)
	result, err := r.loadManager.Load(ctx, transformedData)
	outcome.Load = result
	if err != nil {
		r.writeRejects(logger, runID, transformedData.Rejected)
		return fail("Load", err)
	}

	// 4. Сводка по хранилищу после фиксации
	sum, err := summary.Collect(ctx, r.store)
	if err != nil {
		return fail("Summary", err)
	}

	rejected := make([]models.RejectedRow, 0, len(transformedData.Rejected)+result.FactsFailed)
	rejected = append(rejected, transformedData.Rejected...)
	rejected = append(rejected, result.Rejected()...)
	outcome.Rejected = len(rejected)
	outcome.Status = classify(transformedData.Stats, result)
	r.writeRejects(logger, runID, rejected)

	sum.RunID = runID
	sum.Status = outcome.Status
	outcome.Summary = sum
	r.summaries.Set(sum)

	// Обновляем запись в журнале
	counters := models.RunCounters{
		ProductsProcessed: transformedData.Stats.ProductsOut,
		ClientsProcessed:  transformedData.Stats.ClientsOut,
		SalesProcessed:    transformedData.Stats.SalesOut,
		SalesDropped:      transformedData.Stats.SalesDropped,
		FactsLoaded:       result.FactsInserted,
		FactsFailed:       result.FactsFailed,
	}
	if err := r.etlLogRepo.UpdateLogEntryFinished(context.WithoutCancel(ctx), runID, time.Now(), outcome.Status, counters); err != nil {
		logger.Error("Ошибка при обновлении записи в журнале ETL", "error", err)
	}

	outcome.Duration = time.Since(startTime)
	outcome.Warnings = logger.Warnings() - warningsBefore
	logger.LogETLComplete(startTime, outcome.Status)
	return outcome, nil
}

// classify определяет исход зафиксированного запуска
func classify(stats models.NormalizationStats, result *load.LoadResult) string {
	if stats.SalesDropped > 0 || stats.MissingKeysRejected > 0 || result.Partial() {
		return models.RunStatusPartial
	}
	return models.RunStatusSuccess
}

// updateETLRunLogFailure обновляет запись в журнале ETL при ошибке
func (r *ETLRunner) updateETLRunLogFailure(ctx context.Context, logger *utils.ETLLogger, runID, errorMessage string) {
	err := r.etlLogRepo.UpdateLogEntryFailure(context.WithoutCancel(ctx), runID, time.Now(), errorMessage)
	if err != nil {
		logger.Error("Ошибка при обновлении записи в журнале ETL", "error", err)
	}
}

// writeRejects сохраняет отброшенные строки, если задан etl.rejects_path
func (r *ETLRunner) writeRejects(logger *utils.ETLLogger, runID string, rows []models.RejectedRow) {
	if r.config.ETL.RejectsPath == "" || len(rows) == 0 {
		return
	}

	path := rejects.Path(r.config.ETL.RejectsPath, runID)
	if err := rejects.WriteFile(path, rows); err != nil {
		logger.Error("Не удалось сохранить отброшенные строки", "path", path, "error", err)
		return
	}
	logger.Info("Отброшенные строки сохранены", "path", path, "rows", len(rows))
}

// StartScheduler запускает планировщик для регулярного выполнения ETL.
// Запуски не пересекаются: пока идет предыдущий, следующий не стартует
func (r *ETLRunner) StartScheduler(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	r.logger.Info("Запуск планировщика ETL", "interval", r.config.ETL.RunInterval)

	_, err := scheduler.Every(r.config.ETL.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		if _, err := r.ExecuteETL(ctx); err != nil {
			r.logger.Error("Ошибка при выполнении запланированного ETL", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	var server *http.Server
	if r.config.ETL.StatusAddr != "" {
		server = status.NewServer(r.config.ETL.StatusAddr, r.etlLogRepo, r.summaries, r.logger)
		go func() {
			r.logger.Info("HTTP-сервер статуса запущен", "addr", r.config.ETL.StatusAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.logger.Error("Ошибка HTTP-сервера статуса", "error", err)
			}
		}()
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик, дожидаясь текущего запуска
	scheduler.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("Ошибка при остановке HTTP-сервера статуса", "error", err)
		}
	}
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}
