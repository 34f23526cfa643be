//go:build integration

package warehouse_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	testcontainers "github.com/testcontainers/testcontainers-go"

	"github.com/LilVoxy/sales_warehouse/ETL/load"
	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/summary"
	"github.com/LilVoxy/sales_warehouse/ETL/transform"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
	"github.com/LilVoxy/sales_warehouse/ETL/warehouse"
)

const starSchemaPostgres = `
CREATE TABLE dim_date (
    date_id INT PRIMARY KEY,
    full_date DATE NOT NULL,
    day SMALLINT NOT NULL,
    month SMALLINT NOT NULL,
    month_name VARCHAR(20) NOT NULL,
    quarter SMALLINT NOT NULL,
    year SMALLINT NOT NULL
);
CREATE TABLE dim_source (
    source_id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description VARCHAR(255)
);
CREATE TABLE dim_product (
    product_id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255),
    price NUMERIC(12, 2) NOT NULL
);
CREATE TABLE dim_client (
    client_id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255),
    email VARCHAR(255) NOT NULL,
    country VARCHAR(100),
    region VARCHAR(100)
);
CREATE TABLE fact_sales (
    sale_id VARCHAR(50) PRIMARY KEY,
    product_id VARCHAR(50) NOT NULL REFERENCES dim_product (product_id),
    client_id VARCHAR(50) NOT NULL REFERENCES dim_client (client_id),
    source_id INT REFERENCES dim_source (source_id),
    date_id INT NOT NULL REFERENCES dim_date (date_id),
    quantity INT NOT NULL,
    price NUMERIC(12, 2),
    total NUMERIC(14, 2)
);`

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sales_warehouse"),
		postgres.WithUsername("etl"),
		postgres.WithPassword("etl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("не удалось остановить контейнер: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, starSchemaPostgres)
	require.NoError(t, err)
	return db
}

func integrationData() *models.TransformedData {
	date := time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)
	sale := func(id, product, source string, price int64) models.SaleRecord {
		return models.SaleRecord{
			SaleID:    id,
			ProductID: product,
			ClientID:  "C1",
			Source:    sql.NullString{String: source, Valid: true},
			Date:      date,
			Quantity:  2,
			Price:     decimal.NewNullDecimal(decimal.NewFromInt(price)),
			Total:     decimal.NewNullDecimal(decimal.NewFromInt(2 * price)),
		}
	}

	normalized := &models.NormalizedData{
		Products: []models.ProductRecord{{ProductID: "P1", Price: decimal.NewFromInt(10)}},
		Clients:  []models.ClientRecord{{ClientID: "C1", Email: "ana@correo.do", Country: "RD", Region: "SD"}},
		Sales: []models.SaleRecord{
			sale("S1", "P1", "Web", 10),
			sale("S2", "P9", "Web", 5),
			sale("S3", "P1", "WhatsApp", 10),
		},
	}

	data := &models.TransformedData{Sales: normalized.Sales}
	transform.NewDimensionBuilder(utils.NewDiscardLogger()).Build(normalized, data)
	return data
}

func TestSQLWarehouse_PostgresLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("пропуск интеграционного теста в режиме -short")
	}

	ctx := context.Background()
	db := startPostgres(t)

	wh := warehouse.NewSQLWarehouse(db, warehouse.Postgres)
	manager := load.NewLoadManager(wh, utils.NewDiscardLogger(), load.DefaultOptions())

	result, err := manager.Load(ctx, integrationData())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FactsInserted)
	assert.Equal(t, 1, result.FactsFailed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "S2", result.Failures[0].SaleID)
	assert.ErrorIs(t, result.Failures[0].Err, load.ErrForeignKeyViolation)

	// Повторный запуск не меняет хранилище
	_, err = manager.Load(ctx, integrationData())
	require.NoError(t, err)

	sum, err := summary.Collect(ctx, wh)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		models.TableDimSource:  2,
		models.TableDimProduct: 1,
		models.TableDimClient:  1,
		models.TableDimDate:    1,
		models.TableFactSales:  2,
	}, sum.Counts())

	var sourceID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT source_id FROM fact_sales WHERE sale_id = 'S3'`).Scan(&sourceID))
	var name string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT name FROM dim_source WHERE source_id = $1`, sourceID).Scan(&name))
	assert.Equal(t, "WhatsApp", name)
}

func TestSQLRunLogRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("пропуск интеграционного теста в режиме -short")
	}

	ctx := context.Background()
	db := startPostgres(t)
	repo := warehouse.NewSQLRunLogRepository(db, warehouse.Postgres)

	require.NoError(t, repo.CreateETLLogTable(ctx))
	require.NoError(t, repo.CreateLogEntry(ctx, "run-1", time.Now().Add(-time.Second)))
	require.NoError(t, repo.UpdateLogEntryFinished(ctx, "run-1", time.Now(), models.RunStatusPartial,
		models.RunCounters{SalesProcessed: 3, FactsLoaded: 2, FactsFailed: 1}))

	last, err := repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, models.RunStatusPartial, last.Status)
	assert.Equal(t, 2, last.FactsLoaded)
}
