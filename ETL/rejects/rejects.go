// Package rejects сохраняет отброшенные строки запуска в сжатый CSV-архив
package rejects

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

var header = []string{"kind", "set", "key", "reason", "raw"}

// Path подставляет идентификатор запуска в шаблон пути (%s)
func Path(pattern, runID string) string {
	if strings.Contains(pattern, "%s") {
		return fmt.Sprintf(pattern, runID)
	}
	return pattern
}

// WriteFile записывает отброшенные строки в файл path
func WriteFile(path string, rows []models.RejectedRow) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ошибка при создании каталога архива: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка при создании архива отброшенных строк: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return Write(f, rows)
}

// Write пишет строки в w как CSV, сжатый snappy
func Write(w io.Writer, rows []models.RejectedRow) error {
	zw := compressWriter(w)
	cw := csv.NewWriter(zw)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("ошибка при записи заголовка: %w", err)
	}

	for _, row := range rows {
		raw, err := json.Marshal(row.Raw)
		if err != nil {
			return fmt.Errorf("ошибка при сериализации строки %s: %w", row.Key, err)
		}
		if err := cw.Write([]string{row.Kind, row.Set, row.Key, row.Reason, string(raw)}); err != nil {
			return fmt.Errorf("ошибка при записи строки %s: %w", row.Key, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("ошибка при записи CSV: %w", err)
	}
	return zw.Close()
}

// Read читает архив, записанный Write
func Read(r io.Reader) ([]models.RejectedRow, error) {
	cr := csv.NewReader(decompressReader(r))
	cr.FieldsPerRecord = len(header)

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("ошибка при чтении заголовка: %w", err)
	}

	var rows []models.RejectedRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка при чтении архива: %w", err)
		}

		row := models.RejectedRow{
			Kind:   record[0],
			Set:    record[1],
			Key:    record[2],
			Reason: record[3],
		}
		if err := json.Unmarshal([]byte(record[4]), &row.Raw); err != nil {
			return nil, fmt.Errorf("ошибка при разборе строки %s: %w", row.Key, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
