package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]string{
		"mysql":    "mysql",
		"postgres": "postgres",
		"pgx":      "postgres",
	} {
		d, err := DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, d.Name)
	}

	_, err := DialectFor("sqlite3")
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", MySQL.Placeholders(3))
	assert.Equal(t, "$1, $2, $3", Postgres.Placeholders(3))
}

func TestDialectRebind(t *testing.T) {
	query := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	assert.Equal(t, query, MySQL.Rebind(query))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", Postgres.Rebind(query))
}
