package warehouse

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/LilVoxy/sales_warehouse/ETL/load"
	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// ErrTxClosed возвращается при работе с уже завершенной транзакцией
var ErrTxClosed = errors.New("транзакция уже завершена")

// tableSchema описывает ограничения таблицы в памяти
type tableSchema struct {
	key     string            // бизнес-ключ, уникален
	autoID  string            // генерируемый идентификатор
	notNull []string          // обязательные колонки
	foreign map[string]string // колонка -> таблица, где колонка с тем же именем уникальна
}

var memorySchema = map[string]tableSchema{
	models.TableDimDate: {
		key:     "date_id",
		notNull: []string{"date_id", "full_date"},
	},
	models.TableDimSource: {
		key:     "name",
		autoID:  "source_id",
		notNull: []string{"name"},
	},
	models.TableDimProduct: {
		key:     "product_id",
		notNull: []string{"product_id", "price"},
	},
	models.TableDimClient: {
		key:     "client_id",
		notNull: []string{"client_id", "email"},
	},
	models.TableFactSales: {
		key:     "sale_id",
		notNull: []string{"sale_id", "product_id", "client_id", "date_id", "quantity"},
		foreign: map[string]string{
			"product_id": models.TableDimProduct,
			"client_id":  models.TableDimClient,
			"source_id":  models.TableDimSource,
			"date_id":    models.TableDimDate,
		},
	},
}

type memRow map[string]any

// MemoryWarehouse - звездная схема в памяти процесса с проверкой
// первичных, уникальных и внешних ключей. Используется для пробного запуска и в тестах
type MemoryWarehouse struct {
	mu      sync.Mutex
	tables  map[string][]memRow
	nextID  map[string]int64
	commits int

	// FailInsert, если задан, вызывается перед каждой вставкой и может вернуть ошибку
	FailInsert func(row models.Row) error
	// FailLookup, если задан, возвращается из LookupID
	FailLookup error
	// FailBegin, если задан, возвращается из Begin
	FailBegin error
}

// NewMemoryWarehouse создает пустое хранилище в памяти
func NewMemoryWarehouse() *MemoryWarehouse {
	tables := make(map[string][]memRow, len(memorySchema))
	for name := range memorySchema {
		tables[name] = nil
	}
	return &MemoryWarehouse{
		tables: tables,
		nextID: make(map[string]int64),
	}
}

// Begin открывает транзакцию. Изменения видны другим только после Commit
func (w *MemoryWarehouse) Begin(ctx context.Context) (load.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.FailBegin != nil {
		return nil, w.FailBegin
	}
	return &memTx{w: w, pending: make(map[string][]memRow)}, nil
}

// CountRows возвращает количество зафиксированных строк в таблицах
func (w *MemoryWarehouse) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		rows, ok := w.tables[table]
		if !ok {
			return nil, fmt.Errorf("неизвестная таблица %s", table)
		}
		counts[table] = int64(len(rows))
	}
	return counts, nil
}

// Commits возвращает количество зафиксированных транзакций
func (w *MemoryWarehouse) Commits() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commits
}

// Rows возвращает копию зафиксированных строк таблицы
func (w *MemoryWarehouse) Rows(table string) []map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := make([]map[string]any, 0, len(w.tables[table]))
	for _, r := range w.tables[table] {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows = append(rows, cp)
	}
	return rows
}

type memTx struct {
	w       *MemoryWarehouse
	pending map[string][]memRow
	closed  bool
}

func (t *memTx) Exists(ctx context.Context, table, keyColumn string, key any) (bool, error) {
	if err := t.check(ctx); err != nil {
		return false, err
	}
	t.w.mu.Lock()
	defer t.w.mu.Unlock()

	_, found := t.find(table, keyColumn, key)
	return found, nil
}

func (t *memTx) Insert(ctx context.Context, row models.Row) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if t.w.FailInsert != nil {
		if err := t.w.FailInsert(row); err != nil {
			return err
		}
	}

	t.w.mu.Lock()
	defer t.w.mu.Unlock()

	schema, ok := memorySchema[row.Table]
	if !ok {
		return fmt.Errorf("неизвестная таблица %s", row.Table)
	}

	r := make(memRow, len(row.Columns)+1)
	for i, column := range row.Columns {
		v, err := plain(row.Values[i])
		if err != nil {
			return err
		}
		r[column] = v
	}

	for _, column := range schema.notNull {
		if r[column] == nil {
			return fmt.Errorf("%w: %s.%s", load.ErrNotNull, row.Table, column)
		}
	}

	if _, dup := t.find(row.Table, schema.key, r[schema.key]); dup {
		return fmt.Errorf("%w: %s.%s=%v", load.ErrDuplicateKey, row.Table, schema.key, r[schema.key])
	}

	for column, ref := range schema.foreign {
		v := r[column]
		if v == nil {
			continue
		}
		if _, found := t.find(ref, column, v); !found {
			return fmt.Errorf("%w: %s.%s=%v нет в %s", load.ErrForeignKeyViolation, row.Table, column, v, ref)
		}
	}

	if schema.autoID != "" {
		t.w.nextID[row.Table]++
		r[schema.autoID] = t.w.nextID[row.Table]
	}

	t.pending[row.Table] = append(t.pending[row.Table], r)
	return nil
}

// InsertIsolated в памяти совпадает с Insert: неудачная вставка ничего не меняет
func (t *memTx) InsertIsolated(ctx context.Context, row models.Row) error {
	return t.Insert(ctx, row)
}

func (t *memTx) LookupID(ctx context.Context, table, idColumn, keyColumn string, key any) (int64, bool, error) {
	if err := t.check(ctx); err != nil {
		return 0, false, err
	}
	if t.w.FailLookup != nil {
		return 0, false, t.w.FailLookup
	}

	t.w.mu.Lock()
	defer t.w.mu.Unlock()

	r, found := t.find(table, keyColumn, key)
	if !found {
		return 0, false, nil
	}
	id, ok := r[idColumn].(int64)
	if !ok {
		return 0, false, fmt.Errorf("колонка %s.%s не содержит идентификатор", table, idColumn)
	}
	return id, true, nil
}

func (t *memTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true

	t.w.mu.Lock()
	defer t.w.mu.Unlock()

	for table, rows := range t.pending {
		t.w.tables[table] = append(t.w.tables[table], rows...)
	}
	t.w.commits++
	return nil
}

func (t *memTx) Rollback() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	t.pending = nil
	return nil
}

func (t *memTx) check(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	return ctx.Err()
}

// find ищет строку по значению колонки среди зафиксированных и ожидающих строк.
// Вызывается под мьютексом
func (t *memTx) find(table, column string, value any) (memRow, bool) {
	want := fmt.Sprint(value)
	for _, rows := range [][]memRow{t.w.tables[table], t.pending[table]} {
		for _, r := range rows {
			if v, ok := r[column]; ok && v != nil && fmt.Sprint(v) == want {
				return r, true
			}
		}
	}
	return nil, false
}

// plain разворачивает driver.Valuer (sql.NullString, decimal.Decimal и т.п.)
func plain(v any) (any, error) {
	valuer, ok := v.(driver.Valuer)
	if !ok {
		return v, nil
	}
	value, err := valuer.Value()
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении значения: %w", err)
	}
	return value, nil
}
