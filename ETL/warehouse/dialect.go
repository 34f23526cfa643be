package warehouse

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect описывает различия SQL между поддерживаемыми СУБД
type Dialect struct {
	Name          string
	numbered      bool   // $1, $2 вместо ?
	timestampType string // тип колонок времени в журнале запусков
	textType      string
}

// Поддерживаемые диалекты
var (
	MySQL = Dialect{
		Name:          "mysql",
		timestampType: "DATETIME",
		textType:      "TEXT",
	}
	Postgres = Dialect{
		Name:          "postgres",
		numbered:      true,
		timestampType: "TIMESTAMP",
		textType:      "TEXT",
	}
)

// DialectFor возвращает диалект для имени драйвера database/sql
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("нет SQL-диалекта для драйвера %q", driver)
	}
}

// Placeholder возвращает параметр запроса с номером n (с единицы)
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders возвращает список из count параметров через запятую
func (d Dialect) Placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// Rebind заменяет ? в запросе на параметры диалекта
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
