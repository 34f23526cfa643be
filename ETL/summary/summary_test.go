package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
	asked  []string
}

func (f *fakeCounter) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	f.asked = tables
	return f.counts, f.err
}

func TestCollectKeepsTableOrder(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{
		models.TableFactSales:  42,
		models.TableDimDate:    7,
		models.TableDimSource:  3,
		models.TableDimClient:  5,
		models.TableDimProduct: 9,
	}}

	s, err := Collect(context.Background(), counter)
	require.NoError(t, err)

	names := make([]string, 0, len(s.Tables))
	for _, tc := range s.Tables {
		names = append(names, tc.Table)
	}
	assert.Equal(t, []string{"dim_source", "dim_product", "dim_client", "dim_date", "fact_sales"}, names)
	assert.Equal(t, int64(42), s.Counts()[models.TableFactSales])
	assert.Equal(t, models.WarehouseTables, counter.asked)
}

func TestCollectError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Collect(context.Background(), &fakeCounter{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestRender(t *testing.T) {
	s := &Summary{Tables: []TableCount{
		{Table: "dim_source", Rows: 3},
		{Table: "fact_sales", Rows: 1200},
	}}

	out := s.Render()
	assert.Contains(t, out, "dim_source")
	assert.Contains(t, out, "fact_sales")
	assert.Contains(t, out, "1200")
}
