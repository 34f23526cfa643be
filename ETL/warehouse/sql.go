package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/LilVoxy/sales_warehouse/ETL/load"
	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// Точка сохранения, в пределах которой вставляется одна строка факта
const factSavepoint = "fact_row"

// SQLWarehouse - хранилище поверх database/sql
type SQLWarehouse struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLWarehouse создает новый экземпляр SQLWarehouse.
// Соединение принадлежит вызывающему и им же закрывается
func NewSQLWarehouse(db *sql.DB, dialect Dialect) *SQLWarehouse {
	return &SQLWarehouse{
		db:      db,
		dialect: dialect,
	}
}

// Begin открывает транзакцию загрузки
func (w *SQLWarehouse) Begin(ctx context.Context) (load.Tx, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	return &sqlTx{tx: tx, dialect: w.dialect}, nil
}

// CountRows возвращает количество строк в каждой из таблиц одним запросом UNION ALL
func (w *SQLWarehouse) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	if len(tables) == 0 {
		return map[string]int64{}, nil
	}

	parts := make([]string, len(tables))
	for i, table := range tables {
		parts[i] = fmt.Sprintf("SELECT '%s' AS table_name, COUNT(*) AS row_count FROM %s", table, table)
	}
	query := strings.Join(parts, " UNION ALL ")

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка при подсчете строк хранилища: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64, len(tables))
	for rows.Next() {
		var table string
		var count int64
		if err := rows.Scan(&table, &count); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании количества строк: %w", err)
		}
		counts[table] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по количеству строк: %w", err)
	}

	return counts, nil
}

// sqlTx реализует load.Tx поверх *sql.Tx
type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) Exists(ctx context.Context, table, keyColumn string, key any) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s LIMIT 1", table, keyColumn, t.dialect.Placeholder(1))

	var one int
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке %s.%s: %w", table, keyColumn, err)
	}
	return true, nil
}

func (t *sqlTx) Insert(ctx context.Context, row models.Row) error {
	_, err := t.tx.ExecContext(ctx, t.insertQuery(row), row.Values...)
	return classify(err)
}

// InsertIsolated оборачивает вставку в точку сохранения: при ошибке откатывается
// только эта строка, транзакция остается пригодной для продолжения
func (t *sqlTx) InsertIsolated(ctx context.Context, row models.Row) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+factSavepoint); err != nil {
		return fmt.Errorf("ошибка при создании точки сохранения: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, t.insertQuery(row), row.Values...); err != nil {
		insertErr := classify(err)
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+factSavepoint); rbErr != nil {
			return errors.Join(insertErr, fmt.Errorf("ошибка при откате к точке сохранения: %w", rbErr))
		}
		return insertErr
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+factSavepoint); err != nil {
		return fmt.Errorf("ошибка при освобождении точки сохранения: %w", err)
	}
	return nil
}

func (t *sqlTx) LookupID(ctx context.Context, table, idColumn, keyColumn string, key any) (int64, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", idColumn, table, keyColumn, t.dialect.Placeholder(1))

	var id int64
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка при поиске %s.%s: %w", table, idColumn, err)
	}
	return id, true, nil
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqlTx) insertQuery(row models.Row) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		row.Table,
		strings.Join(row.Columns, ", "),
		t.dialect.Placeholders(len(row.Columns)),
	)
}
