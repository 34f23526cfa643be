package warehouse

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/LilVoxy/sales_warehouse/ETL/load"
)

// Коды ошибок MySQL
const (
	mysqlErrDupEntry        = 1062
	mysqlErrBadNull         = 1048
	mysqlErrNoDefault       = 1364
	mysqlErrNoReferencedRow = 1216
	mysqlErrNoReferenced2   = 1452
)

// Коды SQLSTATE PostgreSQL
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// classify оборачивает ошибку драйвера в ошибку загрузчика, если ее вид известен
func classify(err error) error {
	if err == nil {
		return nil
	}

	if sentinel := sentinelFor(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func sentinelFor(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrNoReferencedRow, mysqlErrNoReferenced2:
			return load.ErrForeignKeyViolation
		case mysqlErrDupEntry:
			return load.ErrDuplicateKey
		case mysqlErrBadNull, mysqlErrNoDefault:
			return load.ErrNotNull
		}
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return sentinelForSQLState(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return sentinelForSQLState(pgErr.Code)
	}

	return nil
}

func sentinelForSQLState(code string) error {
	switch code {
	case pgForeignKeyViolation:
		return load.ErrForeignKeyViolation
	case pgUniqueViolation:
		return load.ErrDuplicateKey
	case pgNotNullViolation:
		return load.ErrNotNull
	default:
		return nil
	}
}
