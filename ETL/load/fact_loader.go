package load

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// FactLoader отвечает за загрузку фактов продаж
type FactLoader struct {
	logger            *utils.ETLLogger
	skipExistingFacts bool
}

// NewFactLoader создает новый экземпляр FactLoader
func NewFactLoader(logger *utils.ETLLogger, skipExistingFacts bool) *FactLoader {
	return &FactLoader{
		logger:            logger,
		skipExistingFacts: skipExistingFacts,
	}
}

// Load вставляет факты по одному. Ошибка вставки строки фиксируется и пропускается,
// ошибки поиска ключей и отмена контекста прерывают загрузку.
// Пропускаются только факты, зафиксированные предыдущими запусками
func (l *FactLoader) Load(ctx context.Context, tx Tx, sales []models.SaleRecord, result *LoadResult) error {
	if len(sales) == 0 {
		l.logger.Debug("Нет продаж для загрузки")
		return nil
	}

	l.logger.Info("Начало загрузки фактов продаж", "total", len(sales))
	resolver := newSourceResolver(tx)
	// sale_id, вставленные в этом запуске. Повтор такого ключа не пропускается,
	// а вставляется и падает как дубликат
	inserted := make(map[string]struct{}, len(sales))

	for _, sale := range sales {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("загрузка фактов прервана: %w", err)
		}

		sourceID, err := resolver.resolve(ctx, sale.Source)
		if err != nil {
			return fmt.Errorf("ошибка при поиске источника для продажи %s: %w", sale.SaleID, err)
		}

		fact := NewFactSale(sale, sourceID)

		_, seen := inserted[fact.SaleID]
		if l.skipExistingFacts && fact.SaleID != "" && !seen {
			exists, err := tx.Exists(ctx, models.TableFactSales, "sale_id", fact.SaleID)
			if err != nil {
				return fmt.Errorf("ошибка при проверке факта %s: %w", fact.SaleID, err)
			}
			if exists {
				result.FactsSkipped++
				continue
			}
		}

		if err := tx.InsertIsolated(ctx, fact.Row()); err != nil {
			failure := FactFailure{
				SaleID: fact.SaleID,
				Reason: FailureReason(err),
				Err:    err,
				Fact:   fact,
			}
			result.Failures = append(result.Failures, failure)
			result.FactsFailed++
			l.logger.Warn("Не удалось вставить факт продажи",
				"sale_id", fact.SaleID,
				"reason", failure.Reason,
				"error", err,
			)
			continue
		}
		inserted[fact.SaleID] = struct{}{}
		result.FactsInserted++
	}

	l.logger.Info("Факты продаж загружены",
		"inserted", result.FactsInserted,
		"skipped", result.FactsSkipped,
		"failed", result.FactsFailed,
	)
	return nil
}

// NewFactSale строит строку факта из очищенной продажи.
// date_id вычисляется тем же кодировщиком, что и ключ dim_date
func NewFactSale(sale models.SaleRecord, sourceID sql.NullInt64) models.FactSale {
	return models.FactSale{
		SaleID:    sale.SaleID,
		ProductID: sale.ProductID,
		ClientID:  sale.ClientID,
		SourceID:  sourceID,
		DateID:    models.DateKey(sale.Date),
		Quantity:  sale.Quantity,
		Price:     sale.Price,
		Total:     sale.Total,
	}
}

// sourceResolver кэширует source_id в пределах одного запуска
type sourceResolver struct {
	tx    Tx
	cache map[string]sql.NullInt64
}

func newSourceResolver(tx Tx) *sourceResolver {
	return &sourceResolver{
		tx:    tx,
		cache: make(map[string]sql.NullInt64),
	}
}

func (r *sourceResolver) resolve(ctx context.Context, source sql.NullString) (sql.NullInt64, error) {
	if !source.Valid {
		return sql.NullInt64{}, nil
	}
	if id, ok := r.cache[source.String]; ok {
		return id, nil
	}

	id, found, err := r.tx.LookupID(ctx, models.TableDimSource, "source_id", "name", source.String)
	if err != nil {
		return sql.NullInt64{}, err
	}

	resolved := sql.NullInt64{Int64: id, Valid: found}
	r.cache[source.String] = resolved
	return resolved, nil
}
