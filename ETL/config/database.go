package config

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// DBConnections содержит подключения к базам данных.
// Для драйвера memory соответствующее поле остается nil
type DBConnections struct {
	Source    *sql.DB
	Warehouse *sql.DB
}

// OpenDatabase открывает пул соединений и проверяет доступность БД
func OpenDatabase(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой данных: %w", err)
	}

	return db, nil
}

// ConnectDatabases устанавливает подключения к источнику (для типа sql) и хранилищу
func ConnectDatabases(ctx context.Context, cfg ETLConfig, logger *utils.ETLLogger) (*DBConnections, error) {
	var connections DBConnections

	if cfg.Warehouse.Driver != DriverMemory {
		db, err := OpenDatabase(ctx, cfg.Warehouse)
		if err != nil {
			return nil, fmt.Errorf("хранилище: %w", err)
		}
		connections.Warehouse = db
		logger.Info("Подключение к хранилищу установлено",
			"driver", cfg.Warehouse.Driver,
			"dsn", cfg.Warehouse.MaskedDSN(),
		)
	}

	if cfg.Source.Type == SourceSQL {
		db, err := OpenDatabase(ctx, cfg.Source.Database)
		if err != nil {
			// Закрываем первое подключение при ошибке
			CloseDatabases(&connections, logger)
			return nil, fmt.Errorf("источник: %w", err)
		}
		connections.Source = db
		logger.Info("Подключение к источнику установлено",
			"driver", cfg.Source.Database.Driver,
			"dsn", cfg.Source.Database.MaskedDSN(),
		)
	}

	return &connections, nil
}

// CloseDatabases закрывает подключения к базам данных
func CloseDatabases(connections *DBConnections, logger *utils.ETLLogger) {
	if connections == nil {
		return
	}

	if connections.Source != nil {
		if err := connections.Source.Close(); err != nil {
			logger.Error("Ошибка при закрытии соединения с источником", "error", err)
		}
		connections.Source = nil
	}

	if connections.Warehouse != nil {
		if err := connections.Warehouse.Close(); err != nil {
			logger.Error("Ошибка при закрытии соединения с хранилищем", "error", err)
		}
		connections.Warehouse = nil
	}

	logger.Debug("Соединения с базами данных закрыты")
}
