package transform

import (
	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// DimensionBuilder строит наборы измерений из очищенных данных
type DimensionBuilder struct {
	logger        *utils.ETLLogger
	dateProcessor *DateDimensionProcessor
	srcProcessor  *SourceDimensionProcessor
}

// NewDimensionBuilder создает новый экземпляр DimensionBuilder
func NewDimensionBuilder(logger *utils.ETLLogger) *DimensionBuilder {
	return &DimensionBuilder{
		logger:        logger,
		dateProcessor: NewDateDimensionProcessor(logger),
		srcProcessor:  NewSourceDimensionProcessor(logger),
	}
}

// Build заполняет измерения в переданной структуре.
// Продукты и клиенты переносятся из очищенных записей один к одному
func (b *DimensionBuilder) Build(normalized *models.NormalizedData, out *models.TransformedData) {
	out.Dates = b.dateProcessor.ProcessDateDimension(normalized.Sales)
	out.Sources = b.srcProcessor.ProcessSourceDimension(normalized.Sales)
	out.Products = ProductDimensions(normalized.Products)
	out.Clients = ClientDimensions(normalized.Clients)

	b.logger.Info("Измерения построены",
		"dim_date", len(out.Dates),
		"dim_source", len(out.Sources),
		"dim_product", len(out.Products),
		"dim_client", len(out.Clients),
	)
}

// ProductDimensions переносит очищенные продукты в измерение
func ProductDimensions(products []models.ProductRecord) []models.ProductDimension {
	dims := make([]models.ProductDimension, 0, len(products))
	for _, p := range products {
		dims = append(dims, models.ProductDimension{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.Price,
		})
	}
	return dims
}

// ClientDimensions переносит очищенных клиентов в измерение
func ClientDimensions(clients []models.ClientRecord) []models.ClientDimension {
	dims := make([]models.ClientDimension, 0, len(clients))
	for _, c := range clients {
		dims = append(dims, models.ClientDimension{
			ClientID: c.ClientID,
			Name:     c.Name,
			Email:    c.Email,
			Country:  c.Country,
			Region:   c.Region,
		})
	}
	return dims
}
