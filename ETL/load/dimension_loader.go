package load

import (
	"context"
	"fmt"

	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// DimensionLoader отвечает за загрузку измерений.
// Существующие строки не обновляются: атрибуты, изменившиеся в источнике,
// остаются в хранилище в прежнем виде
type DimensionLoader struct {
	logger *utils.ETLLogger
}

// NewDimensionLoader создает новый экземпляр DimensionLoader
func NewDimensionLoader(logger *utils.ETLLogger) *DimensionLoader {
	return &DimensionLoader{
		logger: logger,
	}
}

// Load вставляет строки измерения, которых еще нет в хранилище.
// Любая ошибка хранилища прерывает загрузку
func (l *DimensionLoader) Load(ctx context.Context, tx Tx, table string, dims []Dimension) (TableResult, error) {
	var result TableResult

	if len(dims) == 0 {
		l.logger.Debug("Нет данных для загрузки измерения", "table", table)
		return result, nil
	}

	for _, dim := range dims {
		exists, err := tx.Exists(ctx, dim.Table(), dim.KeyColumn(), dim.Key())
		if err != nil {
			return result, fmt.Errorf("ошибка при проверке %s %v: %w", dim.Table(), dim.Key(), err)
		}
		if exists {
			result.Skipped++
			continue
		}

		if err := tx.Insert(ctx, dim.Row()); err != nil {
			return result, fmt.Errorf("ошибка при вставке в %s %v: %w", dim.Table(), dim.Key(), err)
		}
		result.Inserted++
	}

	l.logger.Info("Измерение загружено",
		"table", table,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)
	return result, nil
}
