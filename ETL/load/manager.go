package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// Options задает поведение загрузки
type Options struct {
	// SkipExistingFacts включает проверку sale_id перед вставкой факта,
	// повторный запуск на тех же данных не дублирует строки fact_sales
	SkipExistingFacts bool `mapstructure:"skip_existing_facts"`
}

// DefaultOptions возвращает параметры загрузки по умолчанию
func DefaultOptions() Options {
	return Options{SkipExistingFacts: true}
}

// LoadManager отвечает за управление процессом загрузки данных в хранилище
type LoadManager struct {
	warehouse  Warehouse
	logger     *utils.ETLLogger
	dimLoader  *DimensionLoader
	factLoader *FactLoader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(warehouse Warehouse, logger *utils.ETLLogger, opts Options) *LoadManager {
	return &LoadManager{
		warehouse:  warehouse,
		logger:     logger,
		dimLoader:  NewDimensionLoader(logger),
		factLoader: NewFactLoader(logger, opts.SkipExistingFacts),
	}
}

// Load выполняет фазу загрузки данных ETL-процесса.
// Порядок: dim_date, dim_source, dim_product, dim_client, fact_sales.
// Все операции идут в одной транзакции, фиксация выполняется один раз в конце
func (m *LoadManager) Load(ctx context.Context, transformedData *models.TransformedData) (result *LoadResult, err error) {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Загрузка данных)")

	tx, err := m.warehouse.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	committing := false
	defer func() {
		if err == nil || committing {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("ошибка при откате транзакции: %w", rbErr))
		}
	}()

	result = newLoadResult()

	dimensions := []struct {
		table string
		rows  []Dimension
	}{
		{models.TableDimDate, asDimensions(transformedData.Dates)},
		{models.TableDimSource, asDimensions(transformedData.Sources)},
		{models.TableDimProduct, asDimensions(transformedData.Products)},
		{models.TableDimClient, asDimensions(transformedData.Clients)},
	}

	for _, d := range dimensions {
		tableResult, err := m.dimLoader.Load(ctx, tx, d.table, d.rows)
		if err != nil {
			m.logger.Error("Ошибка при загрузке измерения", "table", d.table, "error", err)
			return nil, fmt.Errorf("ошибка при загрузке измерения %s: %w", d.table, err)
		}
		result.Dimensions[d.table] = tableResult
	}

	if err := m.factLoader.Load(ctx, tx, transformedData.Sales, result); err != nil {
		m.logger.Error("Ошибка при загрузке фактов", "error", err)
		return nil, fmt.Errorf("ошибка при загрузке фактов: %w", err)
	}

	committing = true
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	result.Duration = time.Since(startTime)
	m.logger.Info("Фаза Load завершена",
		"facts_inserted", result.FactsInserted,
		"facts_failed", result.FactsFailed,
		"duration", result.Duration,
	)
	return result, nil
}
