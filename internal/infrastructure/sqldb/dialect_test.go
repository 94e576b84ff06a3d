package sqldb

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/config"
)

func TestDialect_Rebind(t *testing.T) {
	q := "UPDATE customers SET balance = ?, updated_at = ? WHERE id = ?"

	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "UPDATE customers SET balance = $1, updated_at = $2 WHERE id = $3", Postgres.Rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.Rebind("SELECT 1"))
}

func TestBind_PostgresRewritesPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM customers WHERE id = $1").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = Bind(Postgres, db).ExecContext(context.Background(), "DELETE FROM customers WHERE id = ?", "c1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBind_MySQLPassesThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM customers WHERE phone = ?")).
		WithArgs("555").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))

	q := Bind(MySQL, db)
	assert.Same(t, db, q)

	var id string
	require.NoError(t, q.QueryRowContext(context.Background(), "SELECT id FROM customers WHERE phone = ?", "555").Scan(&id))
	assert.Equal(t, "c1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:   config.DriverMySQL,
		Host:     "db",
		Port:     3306,
		User:     "atelier",
		Password: "secret",
		Name:     "atelier",
		SSLMode:  "disable",
	}

	dsn, err := DSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "atelier:secret@tcp(db:3306)/atelier?parseTime=true&loc=UTC&clientFoundRows=true", dsn)

	cfg.Driver = config.DriverPostgres
	cfg.Port = 5432
	dsn, err = DSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://atelier:secret@db:5432/atelier?sslmode=disable", dsn)

	cfg.Driver = config.DriverMemory
	_, err = DSN(cfg)
	assert.Error(t, err)
}
