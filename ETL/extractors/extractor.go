package extractors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// Source - источник трех исходных наборов записей
type Source interface {
	Extract(ctx context.Context) (*models.ExtractedData, error)
}

// Extractor координирует процесс извлечения данных из источника
type Extractor struct {
	source Source
	logger *utils.ETLLogger
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(source Source, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		source: source,
		logger: logger,
	}
}

// Extract выполняет извлечение данных для ETL процесса
func (e *Extractor) Extract(ctx context.Context) (*models.ExtractedData, error) {
	startTime := time.Now()
	e.logger.Info("Начало фазы Extract (Извлечение данных)")

	extractedData, err := e.source.Extract(ctx)
	if err != nil {
		e.logger.Error("Ошибка при извлечении данных", "error", err)
		return nil, fmt.Errorf("ошибка извлечения данных: %w", err)
	}

	// Записываем время извлечения
	extractedData.ExtractedAt = time.Now()

	e.logger.LogExtractComplete(
		len(extractedData.Products.Rows),
		len(extractedData.Clients.Rows),
		len(extractedData.Sales.Rows),
		time.Since(startTime),
	)

	return extractedData, nil
}

// normalizeHeader приводит имя колонки к виду, в котором его ищет очистка
func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
