package load

import (
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// TableResult содержит итог загрузки одной таблицы измерения
type TableResult struct {
	Inserted int
	Skipped  int
}

// FactFailure описывает факт, который не удалось вставить
type FactFailure struct {
	SaleID string
	Reason string
	Err    error
	Fact   models.FactSale
}

// LoadResult содержит итоги фазы загрузки
type LoadResult struct {
	Dimensions    map[string]TableResult
	FactsInserted int
	FactsSkipped  int
	FactsFailed   int
	Failures      []FactFailure
	Duration      time.Duration
}

func newLoadResult() *LoadResult {
	return &LoadResult{
		Dimensions: make(map[string]TableResult),
	}
}

// Partial сообщает, что часть фактов не была загружена
func (r *LoadResult) Partial() bool {
	return r.FactsFailed > 0
}

// Rejected возвращает неудавшиеся факты в виде отброшенных строк
func (r *LoadResult) Rejected() []models.RejectedRow {
	rows := make([]models.RejectedRow, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, models.RejectedRow{
			Kind:   "failed_fact",
			Set:    models.TableFactSales,
			Key:    f.SaleID,
			Reason: f.Reason,
			Raw:    factRaw(f.Fact),
		})
	}
	return rows
}

// FailureReason возвращает краткую причину отказа вставки
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrForeignKeyViolation):
		return "foreign_key_violation"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrNotNull):
		return "not_null_violation"
	default:
		return "insert_error"
	}
}

func factRaw(f models.FactSale) models.RawRecord {
	raw := models.RawRecord{
		"sale_id":    f.SaleID,
		"product_id": f.ProductID,
		"client_id":  f.ClientID,
		"date_id":    fmt.Sprint(f.DateID),
		"quantity":   fmt.Sprint(f.Quantity),
	}
	if f.SourceID.Valid {
		raw["source_id"] = fmt.Sprint(f.SourceID.Int64)
	}
	if f.Price.Valid {
		raw["price"] = f.Price.Decimal.String()
	}
	if f.Total.Valid {
		raw["total"] = f.Total.Decimal.String()
	}
	return raw
}
