package transform

import (
	"sort"
	"time"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// DateDimensionProcessor отвечает за построение измерения дат
type DateDimensionProcessor struct {
	logger *utils.ETLLogger
}

// NewDateDimensionProcessor создает новый экземпляр DateDimensionProcessor
func NewDateDimensionProcessor(logger *utils.ETLLogger) *DateDimensionProcessor {
	return &DateDimensionProcessor{
		logger: logger,
	}
}

// ProcessDateDimension строит записи dim_date только для дат, встречающихся в продажах.
// Пропуски между датами не заполняются, результат упорядочен по date_id
func (p *DateDimensionProcessor) ProcessDateDimension(sales []models.SaleRecord) []models.DateDimension {
	seen := make(map[int]struct{}, len(sales))
	dates := make([]models.DateDimension, 0)

	for _, sale := range sales {
		key := models.DateKey(sale.Date)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, NewDateDimension(sale.Date))
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].DateID < dates[j].DateID
	})

	p.logger.Debug("Измерение дат построено", "dates", len(dates))
	return dates
}

// NewDateDimension раскладывает календарную дату на атрибуты измерения
func NewDateDimension(t time.Time) models.DateDimension {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	month := int(day.Month())

	return models.DateDimension{
		DateID:    models.DateKey(day),
		FullDate:  day,
		Day:       day.Day(),
		Month:     month,
		MonthName: day.Month().String(), // названия месяцев на английском
		Quarter:   (month-1)/3 + 1,
		Year:      day.Year(),
	}
}
