package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// SQLTables - имена таблиц-источников
type SQLTables struct {
	Products string
	Clients  string
	Sales    string
}

// SQLSource извлекает исходные наборы из промежуточных таблиц OLTP БД.
// Набор колонок определяется по результату запроса, NULL остается NULL
type SQLSource struct {
	db     *sql.DB
	tables SQLTables
	logger *utils.ETLLogger
}

// NewSQLSource создает новый экземпляр SQLSource
func NewSQLSource(db *sql.DB, tables SQLTables, logger *utils.ETLLogger) *SQLSource {
	return &SQLSource{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// Extract извлекает products, clients и sales
func (s *SQLSource) Extract(ctx context.Context) (*models.ExtractedData, error) {
	var data models.ExtractedData
	var err error

	if data.Products, err = s.extractTable(ctx, s.tables.Products, models.SetProducts); err != nil {
		return nil, err
	}
	if data.Clients, err = s.extractTable(ctx, s.tables.Clients, models.SetClients); err != nil {
		return nil, err
	}
	if data.Sales, err = s.extractTable(ctx, s.tables.Sales, models.SetSales); err != nil {
		return nil, err
	}

	return &data, nil
}

func (s *SQLSource) extractTable(ctx context.Context, table, name string) (models.RecordSet, error) {
	s.logger.Debug("Начало извлечения таблицы", "table", table)

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка запроса %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка получения колонок %s: %w", table, err)
	}

	columns := make([]string, len(names))
	for i, n := range names {
		columns[i] = normalizeHeader(n)
	}

	set := models.RecordSet{Name: name, Columns: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return models.RecordSet{}, fmt.Errorf("ошибка обработки строки %s: %w", table, err)
		}

		row := make(models.RawRecord, len(columns))
		for i, column := range columns {
			if text, ok := asText(values[i]); ok {
				row[column] = text
			}
		}
		set.Rows = append(set.Rows, row)
	}

	// Проверяем ошибки после итерации по результатам
	if err := rows.Err(); err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка после итерации по %s: %w", table, err)
	}

	s.logger.Debug("Таблица извлечена", "table", table, "rows", len(set.Rows))
	return set, nil
}

// asText приводит значение драйвера к тексту, который разбирает очистка.
// Даты выводятся в формате год-месяц-день
func asText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case []byte:
		return string(x), true
	case string:
		return x, true
	case time.Time:
		return x.Format("2006-01-02"), true
	default:
		return fmt.Sprint(x), true
	}
}
