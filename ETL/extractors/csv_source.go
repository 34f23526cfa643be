package extractors

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// CSVFiles - имена файлов исходных наборов
type CSVFiles struct {
	Products string
	Clients  string
	Sales    string
}

// CSVSource читает исходные наборы из CSV-файлов с заголовком
type CSVSource struct {
	dir    string
	files  CSVFiles
	logger *utils.ETLLogger
}

// NewCSVSource создает новый экземпляр CSVSource
func NewCSVSource(dir string, files CSVFiles, logger *utils.ETLLogger) *CSVSource {
	return &CSVSource{
		dir:    dir,
		files:  files,
		logger: logger,
	}
}

// Extract читает products, clients и sales
func (s *CSVSource) Extract(ctx context.Context) (*models.ExtractedData, error) {
	var data models.ExtractedData
	var err error

	sets := []struct {
		name string
		file string
		dst  *models.RecordSet
	}{
		{models.SetProducts, s.files.Products, &data.Products},
		{models.SetClients, s.files.Clients, &data.Clients},
		{models.SetSales, s.files.Sales, &data.Sales},
	}

	for _, set := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, set.file)
		*set.dst, err = s.readFile(path, set.name)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Файл прочитан", "set", set.name, "path", path, "rows", len(set.dst.Rows))
	}

	return &data, nil
}

func (s *CSVSource) readFile(path, name string) (models.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка при открытии %s: %w", path, err)
	}
	defer f.Close()

	set, err := ReadCSV(f, name)
	if err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка при чтении %s: %w", path, err)
	}
	return set, nil
}

// ReadCSV читает набор записей из CSV с заголовком.
// Пустые ячейки и недостающие в строке ячейки считаются NULL
func ReadCSV(r io.Reader, name string) (models.RecordSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.RecordSet{Name: name}, nil
	}
	if err != nil {
		return models.RecordSet{}, fmt.Errorf("ошибка при чтении заголовка: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = normalizeHeader(h)
	}

	set := models.RecordSet{Name: name, Columns: columns}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.RecordSet{}, fmt.Errorf("ошибка при чтении строки: %w", err)
		}

		row := make(models.RawRecord, len(columns))
		for i, column := range columns {
			if i < len(record) && record[i] != "" {
				row[column] = record[i]
			}
		}
		set.Rows = append(set.Rows, row)
	}

	return set, nil
}
