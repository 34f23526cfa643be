package transform

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseDecimal приводит текст к десятичному числу.
// Пустое значение и мусор дают Valid=false
func parseDecimal(raw string) (decimal.NullDecimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, true
}

// parseQuantity приводит текст к целому количеству.
// Дробная часть отбрасывается, fractional сообщает, что она была
func parseQuantity(raw string) (quantity int64, fractional bool, ok bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return 0, false, false
	}
	return d.Decimal.IntPart(), !d.Decimal.Equal(d.Decimal.Truncate(0)), true
}

// meanOf считает среднее арифметическое без округления.
// До точности колонки цену округляет хранилище
func meanOf(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return decimal.Sum(values[0], values[1:]...).
		Div(decimal.NewFromInt(int64(len(values)))), true
}
