package transform

import (
	"strings"
	"time"
)

// DateLayouts - фиксированный порядок допустимых форматов даты.
// Порядок важен: неоднозначная строка "03/04/2024" всегда читается как день/месяц
var DateLayouts = []string{
	"2/1/2006", // день/месяц/год
	"2006-1-2", // год-месяц-день (ISO)
	"2-1-2006", // день-месяц-год
	"2006/1/2", // год/месяц/день
}

// ParseDate пытается разобрать дату по DateLayouts в заданном порядке.
// Возвращает false, если ни один формат не подошел
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range DateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
