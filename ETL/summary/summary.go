package summary

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// Counter возвращает количество строк в таблицах хранилища
type Counter interface {
	CountRows(ctx context.Context, tables []string) (map[string]int64, error)
}

// TableCount - количество строк одной таблицы
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// Summary - итоговая сводка по таблицам хранилища после фиксации.
// Только читает хранилище
type Summary struct {
	RunID       string       `json:"run_id,omitempty"`
	Status      string       `json:"status,omitempty"`
	Tables      []TableCount `json:"tables"`
	CollectedAt time.Time    `json:"collected_at"`
}

// Collect собирает количество строк в порядке dim_source, dim_product,
// dim_client, dim_date, fact_sales
func Collect(ctx context.Context, counter Counter) (*Summary, error) {
	counts, err := counter.CountRows(ctx, models.WarehouseTables)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сборе сводки: %w", err)
	}

	s := &Summary{
		Tables:      make([]TableCount, 0, len(models.WarehouseTables)),
		CollectedAt: time.Now(),
	}
	for _, name := range models.WarehouseTables {
		s.Tables = append(s.Tables, TableCount{Table: name, Rows: counts[name]})
	}
	return s, nil
}

// Counts возвращает сводку в виде таблица -> количество строк
func (s *Summary) Counts() map[string]int64 {
	counts := make(map[string]int64, len(s.Tables))
	for _, t := range s.Tables {
		counts[t.Table] = t.Rows
	}
	return counts
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	countStyle  = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// Render рисует сводку в виде таблицы для терминала
func (s *Summary) Render() string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Tabla", "Registros").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return countStyle
			default:
				return cellStyle
			}
		})

	for _, tc := range s.Tables {
		t.Row(tc.Table, strconv.FormatInt(tc.Rows, 10))
	}
	return t.String()
}
