package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Имена таблиц хранилища
const (
	TableDimDate    = "dim_date"
	TableDimSource  = "dim_source"
	TableDimProduct = "dim_product"
	TableDimClient  = "dim_client"
	TableFactSales  = "fact_sales"
)

// WarehouseTables перечисляет таблицы в порядке вывода итоговой сводки
var WarehouseTables = []string{
	TableDimSource,
	TableDimProduct,
	TableDimClient,
	TableDimDate,
	TableFactSales,
}

// Row описывает вставляемую строку таблицы
type Row struct {
	Table   string
	Columns []string
	Values  []any
}

// DateKey кодирует календарную дату в целое YYYYMMDD.
// Используется и при построении dim_date, и при загрузке фактов
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateDimension представляет строку измерения дат
type DateDimension struct {
	DateID    int
	FullDate  time.Time
	Day       int
	Month     int
	MonthName string
	Quarter   int
	Year      int
}

func (d DateDimension) Table() string     { return TableDimDate }
func (d DateDimension) KeyColumn() string { return "date_id" }
func (d DateDimension) Key() any          { return d.DateID }

// Row возвращает строку для вставки в dim_date
func (d DateDimension) Row() Row {
	return Row{
		Table:   TableDimDate,
		Columns: []string{"date_id", "full_date", "day", "month", "month_name", "quarter", "year"},
		Values:  []any{d.DateID, d.FullDate, d.Day, d.Month, d.MonthName, d.Quarter, d.Year},
	}
}

// SourceDimension представляет строку измерения источников.
// source_id генерируется хранилищем, бизнес-ключ - name
type SourceDimension struct {
	Name        string
	Description string
}

func (d SourceDimension) Table() string     { return TableDimSource }
func (d SourceDimension) KeyColumn() string { return "name" }
func (d SourceDimension) Key() any          { return d.Name }

func (d SourceDimension) Row() Row {
	return Row{
		Table:   TableDimSource,
		Columns: []string{"name", "description"},
		Values:  []any{d.Name, d.Description},
	}
}

// ProductDimension повторяет очищенный ProductRecord
type ProductDimension struct {
	ProductID string
	Name      sql.NullString
	Price     decimal.Decimal
}

func (d ProductDimension) Table() string     { return TableDimProduct }
func (d ProductDimension) KeyColumn() string { return "product_id" }
func (d ProductDimension) Key() any          { return d.ProductID }

func (d ProductDimension) Row() Row {
	return Row{
		Table:   TableDimProduct,
		Columns: []string{"product_id", "name", "price"},
		Values:  []any{d.ProductID, d.Name, d.Price},
	}
}

// ClientDimension повторяет очищенный ClientRecord
type ClientDimension struct {
	ClientID string
	Name     sql.NullString
	Email    string
	Country  string
	Region   string
}

func (d ClientDimension) Table() string     { return TableDimClient }
func (d ClientDimension) KeyColumn() string { return "client_id" }
func (d ClientDimension) Key() any          { return d.ClientID }

func (d ClientDimension) Row() Row {
	return Row{
		Table:   TableDimClient,
		Columns: []string{"client_id", "name", "email", "country", "region"},
		Values:  []any{d.ClientID, d.Name, d.Email, d.Country, d.Region},
	}
}

// FactSale представляет строку таблицы фактов продаж
type FactSale struct {
	SaleID    string
	ProductID string
	ClientID  string
	SourceID  sql.NullInt64
	DateID    int
	Quantity  int64
	Price     decimal.NullDecimal
	Total     decimal.NullDecimal
}

// Row возвращает строку для вставки в fact_sales
func (f FactSale) Row() Row {
	return Row{
		Table:   TableFactSales,
		Columns: []string{"sale_id", "product_id", "client_id", "source_id", "date_id", "quantity", "price", "total"},
		Values: []any{
			nullIfEmpty(f.SaleID),
			nullIfEmpty(f.ProductID),
			nullIfEmpty(f.ClientID),
			f.SourceID,
			f.DateID,
			f.Quantity,
			f.Price,
			f.Total,
		},
	}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
