package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord представляет очищенный продукт
type ProductRecord struct {
	ProductID string
	Name      sql.NullString
	Price     decimal.Decimal // после нормализации всегда заполнена
}

// ClientRecord представляет очищенного клиента
type ClientRecord struct {
	ClientID string
	Name     sql.NullString
	Email    string
	Country  string
	Region   string
}

// SaleRecord представляет очищенную продажу.
// Date и Quantity гарантированно заполнены у всех записей, прошедших очистку
type SaleRecord struct {
	SaleID    string
	ProductID string
	ClientID  string
	Source    sql.NullString
	Date      time.Time
	Quantity  int64
	Price     decimal.NullDecimal
	Total     decimal.NullDecimal // Quantity × Price, NULL если цена не распознана
}

// RejectedRow описывает строку, исключенную из загрузки
type RejectedRow struct {
	Kind   string // "dropped_sale", "missing_key", "failed_fact"
	Set    string
	Key    string
	Reason string
	Raw    RawRecord
}

// NormalizationStats содержит статистику фазы очистки
type NormalizationStats struct {
	ProductsIn          int
	ProductsOut         int
	ProductDuplicates   int
	PricesFilled        int
	PriceFillValue      decimal.Decimal
	ClientsIn           int
	ClientsOut          int
	ClientDuplicates    int
	EmailsFilled        int
	SalesIn             int
	SalesOut            int
	SalesDropped        int
	UnparseableDates    int
	InvalidNumbers      int
	QuantitiesTruncated int
	MissingKeysRejected int
}

// NormalizedData содержит очищенные наборы записей
type NormalizedData struct {
	Products []ProductRecord
	Clients  []ClientRecord
	Sales    []SaleRecord
	Rejected []RejectedRow
	Stats    NormalizationStats
}
