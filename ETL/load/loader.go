package load

import (
	"context"
	"errors"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

// Ошибки хранилища, к которым реализации приводят ошибки драйверов
var (
	ErrForeignKeyViolation = errors.New("нарушение внешнего ключа")
	ErrDuplicateKey        = errors.New("нарушение уникальности ключа")
	ErrNotNull             = errors.New("пустое значение в обязательной колонке")
)

// Warehouse открывает транзакционный контекст загрузки
type Warehouse interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx - единственный транзакционный контекст запуска.
// Фиксируется один раз после того, как все строки были обработаны
type Tx interface {
	// Exists проверяет наличие строки по бизнес-ключу
	Exists(ctx context.Context, table, keyColumn string, key any) (bool, error)

	// Insert вставляет строку, ошибка прерывает загрузку
	Insert(ctx context.Context, row models.Row) error

	// InsertIsolated вставляет строку так, что ее ошибка не влияет на остальные
	// операции транзакции
	InsertIsolated(ctx context.Context, row models.Row) error

	// LookupID возвращает сгенерированный идентификатор по бизнес-ключу
	LookupID(ctx context.Context, table, idColumn, keyColumn string, key any) (int64, bool, error)

	Commit() error
	Rollback() error
}

// Dimension - строка измерения с бизнес-ключом
type Dimension interface {
	Table() string
	KeyColumn() string
	Key() any
	Row() models.Row
}

// asDimensions приводит срез конкретных измерений к []Dimension
func asDimensions[T Dimension](items []T) []Dimension {
	dims := make([]Dimension, len(items))
	for i, item := range items {
		dims[i] = item
	}
	return dims
}
