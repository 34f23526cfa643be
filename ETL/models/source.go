package models

import (
	"strings"
	"time"
)

// Имена исходных наборов записей
const (
	SetProducts = "products"
	SetClients  = "clients"
	SetSales    = "sales"
)

// RawRecord представляет одну строку исходного набора.
// Отсутствующий ключ означает NULL
type RawRecord map[string]string

// Get возвращает очищенное от пробелов значение поля.
// Пустая строка считается отсутствующим значением
func (r RawRecord) Get(column string) (string, bool) {
	value, ok := r[column]
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// RecordSet представляет упорядоченный набор сырых записей с известным списком колонок
type RecordSet struct {
	Name    string
	Columns []string
	Rows    []RawRecord
}

// HasColumn проверяет наличие колонки в наборе (без учета регистра)
func (s RecordSet) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// ExtractedData содержит три исходных набора, полученных из источника
type ExtractedData struct {
	Products    RecordSet
	Clients     RecordSet
	Sales       RecordSet
	ExtractedAt time.Time
}
