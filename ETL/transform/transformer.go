package transform

import (
	"fmt"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// Transformer координирует очистку данных и построение измерений
type Transformer struct {
	logger     *utils.ETLLogger
	normalizer *Normalizer
	builder    *DimensionBuilder
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(cfg NormalizerConfig, logger *utils.ETLLogger) *Transformer {
	return &Transformer{
		logger:     logger,
		normalizer: NewNormalizer(cfg, logger),
		builder:    NewDimensionBuilder(logger),
	}
}

// Transform выполняет полный процесс преобразования исходных наборов в измерения и продажи
func (t *Transformer) Transform(extractedData *models.ExtractedData) (*models.TransformedData, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (Преобразование данных)")

	// 1. Очистка исходных наборов
	normalized, err := t.normalizer.Normalize(extractedData)
	if err != nil {
		t.logger.Error("Ошибка при очистке данных", "error", err)
		return nil, fmt.Errorf("ошибка при очистке данных: %w", err)
	}

	transformedData := &models.TransformedData{
		Sales:    normalized.Sales,
		Rejected: normalized.Rejected,
		Stats:    normalized.Stats,
	}

	// 2. Построение измерений
	t.builder.Build(normalized, transformedData)

	// Заполняем метаданные
	transformedData.Metadata = models.ETLMetadata{
		LastRunTimestamp:  time.Now(),
		ProductsProcessed: len(normalized.Products),
		ClientsProcessed:  len(normalized.Clients),
		SalesProcessed:    len(normalized.Sales),
	}

	t.logger.Info("Фаза Transform завершена", "duration", time.Since(startTime))
	return transformedData, nil
}
