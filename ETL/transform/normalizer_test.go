package transform

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

func newTestNormalizer() (*Normalizer, *bytes.Buffer, *utils.ETLLogger) {
	var buf bytes.Buffer
	logger := utils.NewETLLoggerWithWriter(&buf, "debug", "text")
	return NewNormalizer(DefaultNormalizerConfig, logger), &buf, logger
}

func productSet(rows ...models.RawRecord) models.RecordSet {
	return models.RecordSet{Name: models.SetProducts, Columns: ProductColumns, Rows: rows}
}

func clientSet(columns []string, rows ...models.RawRecord) models.RecordSet {
	return models.RecordSet{Name: models.SetClients, Columns: columns, Rows: rows}
}

func saleSet(rows ...models.RawRecord) models.RecordSet {
	return models.RecordSet{Name: models.SetSales, Columns: SaleColumns, Rows: rows}
}

func sale(id, date, quantity, price string) models.RawRecord {
	return models.RawRecord{
		"sale_id":    id,
		"product_id": "P1",
		"client_id":  "C1",
		"source":     "Web",
		"date":       date,
		"quantity":   quantity,
		"price":      price,
	}
}

func TestNormalizeProductsDedupLastWins(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	products, _, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "P1", "name": "Arroz", "price": "10"},
		models.RawRecord{"product_id": "P2", "name": "Habichuelas", "price": "20"},
		models.RawRecord{"product_id": "P1", "name": "Arroz Selecto", "price": "12"},
	), &stats)
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "P1", products[0].ProductID)
	assert.Equal(t, "Arroz Selecto", products[0].Name.String)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "P2", products[1].ProductID)
	assert.Equal(t, 1, stats.ProductDuplicates)
	assert.Equal(t, 3, stats.ProductsIn)
	assert.Equal(t, 2, stats.ProductsOut)
}

func TestNormalizeProductsFillsMeanPrice(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	products, _, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "P1", "name": "a", "price": "10"},
		models.RawRecord{"product_id": "P2", "name": "b", "price": ""},
		models.RawRecord{"product_id": "P3", "name": "c", "price": "30"},
	), &stats)
	require.NoError(t, err)

	require.Len(t, products, 3)
	assert.Equal(t, "10", products[0].Price.String())
	assert.Equal(t, "20", products[1].Price.String())
	assert.Equal(t, "30", products[2].Price.String())
	assert.Equal(t, 1, stats.PricesFilled)
}

func TestNormalizeProductsFillsUnroundedMean(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	products, _, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "P1", "name": "a", "price": "10"},
		models.RawRecord{"product_id": "P2", "name": "b", "price": "20"},
		models.RawRecord{"product_id": "P3", "name": "c", "price": "25"},
		models.RawRecord{"product_id": "P4", "name": "d"},
	), &stats)
	require.NoError(t, err)

	want := decimal.NewFromInt(55).Div(decimal.NewFromInt(3))
	assert.True(t, products[3].Price.Equal(want), products[3].Price.String())
	assert.True(t, stats.PriceFillValue.Equal(want))
}

func TestNormalizeProductsInvalidPriceIsFilledAndWarned(t *testing.T) {
	n, buf, logger := newTestNormalizer()
	var stats models.NormalizationStats

	products, _, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "P1", "name": "a", "price": "10"},
		models.RawRecord{"product_id": "P2", "name": "b", "price": "diez"},
	), &stats)
	require.NoError(t, err)

	assert.Equal(t, "10", products[1].Price.String())
	assert.Equal(t, 1, stats.InvalidNumbers)
	assert.Contains(t, buf.String(), "diez")
	assert.EqualValues(t, 1, logger.Warnings())
}

func TestNormalizeProductsNoValidPriceFillsZero(t *testing.T) {
	n, _, logger := newTestNormalizer()
	var stats models.NormalizationStats

	products, _, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "P1", "name": "a"},
		models.RawRecord{"product_id": "P2", "name": "b", "price": ""},
	), &stats)
	require.NoError(t, err)

	for _, p := range products {
		assert.True(t, p.Price.IsZero())
	}
	assert.EqualValues(t, 1, logger.Warnings())
}

func TestNormalizeProductsDropsMissingKey(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	products, rejected, err := n.NormalizeProducts(productSet(
		models.RawRecord{"product_id": "", "name": "a", "price": "1"},
		models.RawRecord{"product_id": "P2", "name": "b", "price": "2"},
	), &stats)
	require.NoError(t, err)

	assert.Len(t, products, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, "missing_key", rejected[0].Kind)
	assert.Equal(t, 1, stats.MissingKeysRejected)
}

func TestNormalizeProductsMissingColumn(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	set := models.RecordSet{Name: models.SetProducts, Columns: []string{"product_id", "name"}}
	_, _, err := n.NormalizeProducts(set, &stats)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestNormalizeClientsDefaults(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	clients, _, err := n.NormalizeClients(clientSet(
		[]string{"client_id", "name", "email", "country", "region"},
		models.RawRecord{"client_id": "C1", "name": "Juan", "email": "", "country": "Haití", "region": ""},
		models.RawRecord{"client_id": "C2", "name": "Ana", "email": "ana@mail.do", "country": "", "region": "Santiago"},
		models.RawRecord{"client_id": "C1", "name": "Juan Pérez", "email": "", "country": "Haití", "region": ""},
	), &stats)
	require.NoError(t, err)

	require.Len(t, clients, 2)
	assert.Equal(t, "Juan Pérez", clients[0].Name.String)
	assert.Equal(t, "sin-email@colmado.do", clients[0].Email)
	assert.Equal(t, "Haití", clients[0].Country)
	assert.Equal(t, "Santo Domingo", clients[0].Region)
	assert.Equal(t, "ana@mail.do", clients[1].Email)
	assert.Equal(t, "República Dominicana", clients[1].Country)
	assert.Equal(t, "Santiago", clients[1].Region)
	assert.Equal(t, 1, stats.ClientDuplicates)
	assert.Equal(t, 1, stats.EmailsFilled)
}

func TestNormalizeClientsAbsentColumns(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	clients, _, err := n.NormalizeClients(clientSet(
		ClientColumns,
		models.RawRecord{"client_id": "C1", "name": "Juan", "email": "j@x.do"},
	), &stats)
	require.NoError(t, err)

	require.Len(t, clients, 1)
	assert.Equal(t, "República Dominicana", clients[0].Country)
	assert.Equal(t, "Santo Domingo", clients[0].Region)
}

func TestNormalizeSalesDropsUnparseableDate(t *testing.T) {
	n, buf, _ := newTestNormalizer()
	var stats models.NormalizationStats

	sales, rejected, err := n.NormalizeSales(saleSet(
		sale("S1", "03/04/2024", "2", "5"),
		sale("S2", "15/13/2024", "1", "5"),
		sale("S3", "2024-04-05", "", "5"),
		sale("S4", "2024-04-06", "3", ""),
	), &stats)
	require.NoError(t, err)

	require.Len(t, sales, 2)
	assert.Equal(t, "S1", sales[0].SaleID)
	assert.Equal(t, 3, sales[0].Date.Day())
	assert.Equal(t, 4, int(sales[0].Date.Month()))

	assert.Equal(t, 2, stats.SalesDropped)
	assert.Equal(t, stats.SalesIn-stats.SalesOut, stats.SalesDropped)
	require.Len(t, rejected, 2)
	assert.Equal(t, "S2", rejected[0].Key)
	assert.Equal(t, "dropped_sale", rejected[0].Kind)

	out := buf.String()
	assert.Contains(t, out, "15/13/2024")
	assert.Contains(t, out, "dropped=2")
}

func TestNormalizeSalesTotal(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	sales, _, err := n.NormalizeSales(saleSet(
		sale("S1", "2024-01-01", "3", "2.50"),
		sale("S2", "2024-01-01", "2", ""),
		sale("S3", "2024-01-01", "2", "n/a"),
	), &stats)
	require.NoError(t, err)

	require.Len(t, sales, 3)
	require.True(t, sales[0].Total.Valid)
	assert.Equal(t, "7.5", sales[0].Total.Decimal.String())
	for _, s := range sales[1:] {
		assert.False(t, s.Price.Valid)
		assert.False(t, s.Total.Valid)
	}
}

func TestNormalizeSalesTruncatesFractionalQuantity(t *testing.T) {
	n, buf, logger := newTestNormalizer()
	var stats models.NormalizationStats

	sales, rejected, err := n.NormalizeSales(saleSet(
		sale("S1", "2024-01-01", "1.5", "2"),
	), &stats)
	require.NoError(t, err)

	require.Len(t, sales, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, int64(1), sales[0].Quantity)
	assert.Equal(t, "2", sales[0].Total.Decimal.String())
	assert.Zero(t, stats.SalesDropped)
	assert.Equal(t, 1, stats.QuantitiesTruncated)
	assert.Contains(t, buf.String(), "1.5")
	assert.EqualValues(t, 1, logger.Warnings())
}

func TestNormalizeSalesNullSource(t *testing.T) {
	n, _, _ := newTestNormalizer()
	var stats models.NormalizationStats

	row := sale("S1", "2024-01-01", "1", "2")
	row["source"] = " "
	sales, _, err := n.NormalizeSales(saleSet(row), &stats)
	require.NoError(t, err)

	require.Len(t, sales, 1)
	assert.False(t, sales[0].Source.Valid)
}
