package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_warehouse/ETL/config"
	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/rejects"
	"github.com/LilVoxy/sales_warehouse/ETL/transform"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

const (
	productsCSV = `product_id,name,price
P1,Arroz,10
P2,Aceite,
P3,Salami,30
P1,Arroz Selecto,10
`
	clientsCSV = `client_id,name,email,country
C1,Ana,ana@correo.do,
C2,Luis,,Haiti
`
	salesCSV = `sale_id,product_id,client_id,source,date,quantity,price
S1,P1,C1,Web,03/04/2024,2,10
S2,P3,C2,WhatsApp,2024-04-05,1,30
S3,P2,C1,Web,15/13/2024,1,20
S4,P9,C1,Web,03/04/2024,1,5
`
)

func writeSources(t *testing.T, sales string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"products.csv": productsCSV,
		"clients.csv":  clientsCSV,
		"sales.csv":    sales,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestRunner(t *testing.T, dir string) *ETLRunner {
	t.Helper()

	cfg := config.DefaultETLConfig
	cfg.Source.Dir = dir
	cfg.Warehouse.Driver = config.DriverMemory
	cfg.ETL.RejectsPath = filepath.Join(t.TempDir(), "rejects_%s.csv.sz")

	runner, err := NewETLRunner(context.Background(), cfg, utils.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return runner
}

func TestExecuteETL_PartialRun(t *testing.T) {
	runner := newTestRunner(t, writeSources(t, salesCSV))

	outcome, err := runner.ExecuteETL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.Stats.SalesDropped)
	assert.Equal(t, 2, outcome.Load.FactsInserted)
	assert.Equal(t, 1, outcome.Load.FactsFailed)
	assert.Equal(t, 2, outcome.Rejected)
	assert.Positive(t, outcome.Warnings)

	require.NotNil(t, outcome.Summary)
	assert.Equal(t, map[string]int64{
		models.TableDimSource:  2,
		models.TableDimProduct: 3,
		models.TableDimClient:  2,
		models.TableDimDate:    2,
		models.TableFactSales:  2,
	}, outcome.Summary.Counts())
	assert.Same(t, outcome.Summary, runner.summaries.Get())

	monitor, err := runner.etlLogRepo.GetETLStateMonitor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, monitor.LastSuccessfulRun)
	assert.Equal(t, outcome.RunID, monitor.LastSuccessfulRun.RunID)
	assert.Equal(t, 2, monitor.LastSuccessfulRun.FactsLoaded)
	assert.Equal(t, 1, monitor.TotalPartialRuns)

	f, err := os.Open(rejects.Path(runner.config.ETL.RejectsPath, outcome.RunID))
	require.NoError(t, err)
	defer f.Close()
	rows, err := rejects.Read(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S3", rows[0].Key)
	assert.Equal(t, "S4", rows[1].Key)
}

func TestExecuteETL_RerunIsIdempotent(t *testing.T) {
	runner := newTestRunner(t, writeSources(t, salesCSV))

	first, err := runner.ExecuteETL(context.Background())
	require.NoError(t, err)
	second, err := runner.ExecuteETL(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Summary.Counts(), second.Summary.Counts())
	assert.Equal(t, 0, second.Load.FactsInserted)
}

func TestExecuteETL_CleanRunSucceeds(t *testing.T) {
	sales := `sale_id,product_id,client_id,source,date,quantity,price
S1,P1,C1,Web,03/04/2024,2,10
`
	runner := newTestRunner(t, writeSources(t, sales))

	outcome, err := runner.ExecuteETL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, outcome.Status)
	assert.Zero(t, outcome.Rejected)
}

func TestExecuteETL_RepeatedSaleIDIsPartial(t *testing.T) {
	sales := `sale_id,product_id,client_id,source,date,quantity,price
S1,P1,C1,Web,03/04/2024,2,10
S1,P3,C2,Web,05/04/2024,4,30
`
	runner := newTestRunner(t, writeSources(t, sales))

	outcome, err := runner.ExecuteETL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPartial, outcome.Status)
	assert.Equal(t, 1, outcome.Load.FactsInserted)
	assert.Equal(t, 1, outcome.Load.FactsFailed)
	assert.Zero(t, outcome.Load.FactsSkipped)
	assert.Positive(t, outcome.Warnings)
	assert.Equal(t, 1, outcome.Rejected)
}

func TestExecuteETL_MissingColumnAborts(t *testing.T) {
	sales := `sale_id,product_id,client_id,source,date,price
S1,P1,C1,Web,03/04/2024,10
`
	runner := newTestRunner(t, writeSources(t, sales))

	outcome, err := runner.ExecuteETL(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transform.ErrMissingColumn)
	assert.Equal(t, models.RunStatusFailed, outcome.Status)
	assert.Nil(t, outcome.Summary)
	assert.Nil(t, runner.summaries.Get())

	monitor, err := runner.etlLogRepo.GetETLStateMonitor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, monitor.LastFailedRun)
	assert.Equal(t, outcome.RunID, monitor.LastFailedRun.RunID)
	assert.NotEmpty(t, monitor.LastFailedRun.ErrorMessage)

	counts, err := runner.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Counts()[models.TableFactSales])
}

func TestNewETLRunner_UnknownSource(t *testing.T) {
	cfg := config.DefaultETLConfig
	cfg.Source.Type = "xml"
	cfg.Warehouse.Driver = config.DriverMemory

	_, err := NewETLRunner(context.Background(), cfg, utils.NewDiscardLogger())
	assert.Error(t, err)
}
