package transform

import (
	"fmt"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// SourceDescriptionTemplate - шаблон описания источника продаж
const SourceDescriptionTemplate = "Importado desde %s"

// SourceDimensionProcessor отвечает за построение измерения источников
type SourceDimensionProcessor struct {
	logger *utils.ETLLogger
}

// NewSourceDimensionProcessor создает новый экземпляр SourceDimensionProcessor
func NewSourceDimensionProcessor(logger *utils.ETLLogger) *SourceDimensionProcessor {
	return &SourceDimensionProcessor{
		logger: logger,
	}
}

// ProcessSourceDimension собирает различные непустые источники в порядке первого появления
func (p *SourceDimensionProcessor) ProcessSourceDimension(sales []models.SaleRecord) []models.SourceDimension {
	seen := make(map[string]struct{})
	sources := make([]models.SourceDimension, 0)
	withoutSource := 0

	for _, sale := range sales {
		if !sale.Source.Valid {
			withoutSource++
			continue
		}
		if _, ok := seen[sale.Source.String]; ok {
			continue
		}
		seen[sale.Source.String] = struct{}{}
		sources = append(sources, NewSourceDimension(sale.Source.String))
	}

	p.logger.Debug("Измерение источников построено",
		"sources", len(sources),
		"sales_without_source", withoutSource,
	)
	return sources
}

// NewSourceDimension создает запись измерения источников с описанием по шаблону
func NewSourceDimension(name string) models.SourceDimension {
	return models.SourceDimension{
		Name:        name,
		Description: fmt.Sprintf(SourceDescriptionTemplate, name),
	}
}
