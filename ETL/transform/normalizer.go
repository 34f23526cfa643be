package transform

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// ErrMissingColumn возвращается, если в исходном наборе нет обязательной колонки
var ErrMissingColumn = errors.New("в наборе отсутствует обязательная колонка")

// Обязательные колонки исходных наборов
var (
	ProductColumns = []string{"product_id", "name", "price"}
	ClientColumns  = []string{"client_id", "name", "email"}
	SaleColumns    = []string{"sale_id", "product_id", "client_id", "source", "date", "quantity", "price"}
)

// NormalizerConfig содержит значения по умолчанию для очистки
type NormalizerConfig struct {
	DefaultEmail   string `mapstructure:"default_email"`
	DefaultCountry string `mapstructure:"default_country"`
	DefaultRegion  string `mapstructure:"default_region"`
}

// DefaultNormalizerConfig - значения по умолчанию
var DefaultNormalizerConfig = NormalizerConfig{
	DefaultEmail:   "sin-email@colmado.do",
	DefaultCountry: "República Dominicana",
	DefaultRegion:  "Santo Domingo",
}

// Normalizer очищает и приводит типы в исходных наборах.
// Не обращается к хранилищу, единственный побочный эффект - события в логе
type Normalizer struct {
	cfg    NormalizerConfig
	logger *utils.ETLLogger
}

// NewNormalizer создает новый экземпляр Normalizer
func NewNormalizer(cfg NormalizerConfig, logger *utils.ETLLogger) *Normalizer {
	return &Normalizer{
		cfg:    cfg,
		logger: logger,
	}
}

// Normalize очищает все три набора независимо друг от друга
func (n *Normalizer) Normalize(data *models.ExtractedData) (*models.NormalizedData, error) {
	startTime := time.Now()
	result := &models.NormalizedData{}

	products, rejected, err := n.NormalizeProducts(data.Products, &result.Stats)
	if err != nil {
		return nil, fmt.Errorf("ошибка при очистке продуктов: %w", err)
	}
	result.Products = products
	result.Rejected = append(result.Rejected, rejected...)
	n.logger.Info("Продукты очищены", "in", result.Stats.ProductsIn, "out", result.Stats.ProductsOut)

	clients, rejected, err := n.NormalizeClients(data.Clients, &result.Stats)
	if err != nil {
		return nil, fmt.Errorf("ошибка при очистке клиентов: %w", err)
	}
	result.Clients = clients
	result.Rejected = append(result.Rejected, rejected...)
	n.logger.Info("Клиенты очищены", "in", result.Stats.ClientsIn, "out", result.Stats.ClientsOut)

	sales, rejected, err := n.NormalizeSales(data.Sales, &result.Stats)
	if err != nil {
		return nil, fmt.Errorf("ошибка при очистке продаж: %w", err)
	}
	result.Sales = sales
	result.Rejected = append(result.Rejected, rejected...)
	n.logger.Info("Продажи очищены",
		"in", result.Stats.SalesIn,
		"out", result.Stats.SalesOut,
		"duration", time.Since(startTime),
	)

	return result, nil
}

// NormalizeProducts удаляет дубликаты по product_id (побеждает последнее вхождение),
// приводит цену к числу и заполняет пропуски средней ценой.
// Средняя не округляется
func (n *Normalizer) NormalizeProducts(set models.RecordSet, stats *models.NormalizationStats) ([]models.ProductRecord, []models.RejectedRow, error) {
	if err := requireColumns(set, ProductColumns); err != nil {
		return nil, nil, err
	}
	stats.ProductsIn = len(set.Rows)

	rows, rejected := n.withKey(set, "product_id", stats)
	rows, duplicates := dedupLast(rows, "product_id")
	stats.ProductDuplicates = duplicates

	products := make([]models.ProductRecord, 0, len(rows))
	prices := make([]decimal.NullDecimal, 0, len(rows))
	valid := make([]decimal.Decimal, 0, len(rows))

	for _, row := range rows {
		id, _ := row.Get("product_id")
		raw, present := row.Get("price")
		price, ok := parseDecimal(raw)
		if present && !ok {
			stats.InvalidNumbers++
			n.logger.Warn("Цена продукта не распознана, будет заполнена средней",
				"product_id", id,
				"raw", raw,
			)
		}
		if ok {
			valid = append(valid, price.Decimal)
		}

		products = append(products, models.ProductRecord{
			ProductID: id,
			Name:      nullString(row, "name"),
		})
		prices = append(prices, price)
	}

	fill, hasMean := meanOf(valid)
	if !hasMean && len(valid) < len(products) {
		n.logger.Warn("Нет ни одной корректной цены продукта, пропуски заполнены нулем",
			"products", len(products),
		)
	}

	for i := range products {
		if prices[i].Valid {
			products[i].Price = prices[i].Decimal
			continue
		}
		products[i].Price = fill
		stats.PricesFilled++
	}
	stats.PriceFillValue = fill
	stats.ProductsOut = len(products)

	if stats.PricesFilled > 0 {
		n.logger.Info("Пропущенные цены заполнены средней",
			"filled", stats.PricesFilled,
			"mean", fill.String(),
		)
	}

	return products, rejected, nil
}

// NormalizeClients удаляет дубликаты по client_id и проставляет значения по умолчанию
// для email, country и region
func (n *Normalizer) NormalizeClients(set models.RecordSet, stats *models.NormalizationStats) ([]models.ClientRecord, []models.RejectedRow, error) {
	if err := requireColumns(set, ClientColumns); err != nil {
		return nil, nil, err
	}
	stats.ClientsIn = len(set.Rows)

	for _, column := range []string{"country", "region"} {
		if !set.HasColumn(column) {
			n.logger.Info("Колонка отсутствует, всем клиентам назначается значение по умолчанию",
				"column", column,
			)
		}
	}

	rows, rejected := n.withKey(set, "client_id", stats)
	rows, duplicates := dedupLast(rows, "client_id")
	stats.ClientDuplicates = duplicates

	clients := make([]models.ClientRecord, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Get("client_id")

		email, ok := row.Get("email")
		if !ok {
			email = n.cfg.DefaultEmail
			stats.EmailsFilled++
		}

		clients = append(clients, models.ClientRecord{
			ClientID: id,
			Name:     nullString(row, "name"),
			Email:    email,
			Country:  valueOr(row, "country", n.cfg.DefaultCountry),
			Region:   valueOr(row, "region", n.cfg.DefaultRegion),
		})
	}
	stats.ClientsOut = len(clients)

	return clients, rejected, nil
}

// NormalizeSales приводит количество и цену к числам, разбирает дату
// и отбрасывает строки без даты или количества. Дробное количество
// усекается до целого, строка при этом остается
func (n *Normalizer) NormalizeSales(set models.RecordSet, stats *models.NormalizationStats) ([]models.SaleRecord, []models.RejectedRow, error) {
	if err := requireColumns(set, SaleColumns); err != nil {
		return nil, nil, err
	}
	before := len(set.Rows)
	stats.SalesIn = before

	sales := make([]models.SaleRecord, 0, before)
	var rejected []models.RejectedRow

	for _, row := range set.Rows {
		saleID, _ := row.Get("sale_id")

		rawQuantity, hasQuantity := row.Get("quantity")
		quantity, fractional, quantityOK := parseQuantity(rawQuantity)
		if hasQuantity && !quantityOK {
			stats.InvalidNumbers++
			n.logger.Warn("Количество не распознано", "sale_id", saleID, "raw", rawQuantity)
		}
		if fractional {
			stats.QuantitiesTruncated++
			n.logger.Warn("Дробное количество усечено до целого",
				"sale_id", saleID,
				"raw", rawQuantity,
				"quantity", quantity,
			)
		}

		rawPrice, hasPrice := row.Get("price")
		price, priceOK := parseDecimal(rawPrice)
		if hasPrice && !priceOK {
			// цена продажи может остаться пустой, строка не отбрасывается
			stats.InvalidNumbers++
			n.logger.Debug("Цена продажи не распознана", "sale_id", saleID, "raw", rawPrice)
		}

		rawDate, hasDate := row.Get("date")
		date, dateOK := ParseDate(rawDate)
		if !dateOK {
			stats.UnparseableDates++
			if hasDate {
				n.logger.Warn("Дата не распознана, строка будет отброшена", "sale_id", saleID, "raw", rawDate)
			}
		}

		if !quantityOK || !dateOK {
			rejected = append(rejected, models.RejectedRow{
				Kind:   "dropped_sale",
				Set:    models.SetSales,
				Key:    saleID,
				Reason: dropReason(quantityOK, dateOK),
				Raw:    row,
			})
			continue
		}

		sale := models.SaleRecord{
			SaleID:    saleID,
			ProductID: valueOr(row, "product_id", ""),
			ClientID:  valueOr(row, "client_id", ""),
			Source:    nullString(row, "source"),
			Date:      date,
			Quantity:  quantity,
			Price:     price,
		}
		if price.Valid {
			sale.Total = decimal.NullDecimal{
				Decimal: decimal.NewFromInt(quantity).Mul(price.Decimal),
				Valid:   true,
			}
		}
		sales = append(sales, sale)
	}

	stats.SalesOut = len(sales)
	stats.SalesDropped = before - len(sales)
	if stats.SalesDropped > 0 {
		n.logger.Warn("Удалены продажи с некорректной датой или количеством",
			"dropped", stats.SalesDropped,
		)
	}

	return sales, rejected, nil
}

// withKey отбрасывает строки без бизнес-ключа
func (n *Normalizer) withKey(set models.RecordSet, key string, stats *models.NormalizationStats) ([]models.RawRecord, []models.RejectedRow) {
	rows := make([]models.RawRecord, 0, len(set.Rows))
	var rejected []models.RejectedRow

	for _, row := range set.Rows {
		if _, ok := row.Get(key); ok {
			rows = append(rows, row)
			continue
		}
		rejected = append(rejected, models.RejectedRow{
			Kind:   "missing_key",
			Set:    set.Name,
			Reason: "пустой " + key,
			Raw:    row,
		})
	}

	if len(rejected) > 0 {
		stats.MissingKeysRejected += len(rejected)
		n.logger.Warn("Отброшены строки без ключа", "set", set.Name, "key", key, "count", len(rejected))
	}
	return rows, rejected
}

// dedupLast оставляет по одной строке на ключ: позиция первого вхождения,
// значения последнего
func dedupLast(rows []models.RawRecord, key string) ([]models.RawRecord, int) {
	index := make(map[string]int, len(rows))
	result := make([]models.RawRecord, 0, len(rows))
	duplicates := 0

	for _, row := range rows {
		k, _ := row.Get(key)
		if i, seen := index[k]; seen {
			result[i] = row
			duplicates++
			continue
		}
		index[k] = len(result)
		result = append(result, row)
	}
	return result, duplicates
}

func requireColumns(set models.RecordSet, columns []string) error {
	for _, column := range columns {
		if !set.HasColumn(column) {
			return fmt.Errorf("%w: %s.%s", ErrMissingColumn, set.Name, column)
		}
	}
	return nil
}

func nullString(row models.RawRecord, column string) sql.NullString {
	value, ok := row.Get(column)
	return sql.NullString{String: value, Valid: ok}
}

func valueOr(row models.RawRecord, column, fallback string) string {
	if value, ok := row.Get(column); ok {
		return value
	}
	return fallback
}

func dropReason(quantityOK, dateOK bool) string {
	switch {
	case !quantityOK && !dateOK:
		return "некорректные дата и количество"
	case !dateOK:
		return "некорректная дата"
	default:
		return "некорректное количество"
	}
}
