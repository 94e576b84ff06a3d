package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the MySQL test database. It expects a database named
// atelier_test on localhost:3306 unless ATELIER_TEST_DSN says otherwise, and
// skips the test when the server is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("ATELIER_TEST_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/atelier_test?parseTime=true&loc=UTC&clientFoundRows=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the test tables and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"notifications", "orders", "customers"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the tables the repositories use.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createCustomers := `
	CREATE TABLE IF NOT EXISTS customers (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		address VARCHAR(255) NULL,
		pickup_date DATETIME(3) NULL,
		fitting_date DATETIME(3) NULL,
		notes TEXT NULL,
		balance DECIMAL(12,2) NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		INDEX idx_customers_phone (phone)
	)`

	createOrders := `
	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		customer_id VARCHAR(36) NOT NULL,
		item VARCHAR(255) NOT NULL,
		measurements TEXT NULL,
		price DECIMAL(12,2) NOT NULL DEFAULT 0,
		deposit DECIMAL(12,2) NOT NULL DEFAULT 0,
		balance DECIMAL(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL,
		pickup_date DATETIME(3) NULL,
		fitting_date DATETIME(3) NULL,
		notes TEXT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		INDEX idx_orders_customer (customer_id)
	)`

	createNotifications := `
	CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		customer_id VARCHAR(36) NOT NULL,
		notification_type VARCHAR(32) NOT NULL,
		sub_type VARCHAR(32) NULL,
		message TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		sent_at DATETIME(3) NOT NULL,
		INDEX idx_notifications_customer (customer_id)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"customers", createCustomers},
		{"orders", createOrders},
		{"notifications", createNotifications},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
