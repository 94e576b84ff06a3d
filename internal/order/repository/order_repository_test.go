package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/testutil"
)

var (
	created = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	columns = []string{"id", "customer_id", "item", "measurements", "price", "deposit", "balance", "status", "pickup_date", "fitting_date", "notes", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Unit Tests

func TestOrderRepository_FindByID_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("o1", "c1", "Blue suit", `{"chest":"40"}`, "100.00", "20.00", "80.00", "In Progress", nil, nil, nil, created, created))

	o, err := repo.FindByID(context.Background(), db, "o1", false)
	require.NoError(t, err)

	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "c1", o.CustomerID)
	assert.Equal(t, "Blue suit", o.Item)
	assert.Equal(t, map[string]any{"chest": "40"}, o.Measurements)
	assert.True(t, dec("100").Equal(o.Price))
	assert.True(t, dec("20").Equal(o.Deposit))
	assert.True(t, dec("80").Equal(o.Balance))
	assert.Equal(t, domain.OrderStatusInProgress, o.Status)
	assert.Nil(t, o.PickupDate)
	assert.Equal(t, "", o.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	o, err := repo.FindByID(context.Background(), db, "missing", true)
	assert.Nil(t, o)

	nfe, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_FindByID_BadMeasurements(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("o1", "c1", "Shirt", `not json`, "0", "0", "0", "Pending", nil, nil, nil, created, created))

	_, err := repo.FindByID(context.Background(), db, "o1", false)
	assert.Error(t, err)
}

func TestOrderRepository_FindByCustomer_KeepsStorageOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()
	later := created.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE customer_id = ?")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("o1", "c1", "Suit", nil, "100", "20", "80", "Pending", nil, nil, nil, created, created).
			AddRow("o2", "c1", "Shirt", "", "50", "50", "0", "Ready", later, nil, "rush", later, later))

	orders, err := repo.FindByCustomer(context.Background(), db, "c1", false)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, map[string]any{}, orders[0].Measurements)
	assert.Equal(t, "o2", orders[1].ID)
	require.NotNil(t, orders[1].PickupDate)
	assert.Equal(t, later, *orders[1].PickupDate)
	assert.Equal(t, "rush", orders[1].Notes)
	assert.True(t, dec("80").Equal(domain.SumBalances(orders)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Insert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("o1", "c1", "Suit", `{"chest":"40"}`, dec("100"), dec("20"), dec("80"), "Pending",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), db, &domain.Order{
		ID:           "o1",
		CustomerID:   "c1",
		Item:         "Suit",
		Measurements: map[string]any{"chest": "40"},
		Price:        dec("100"),
		Deposit:      dec("20"),
		Balance:      dec("80"),
		Status:       domain.OrderStatusPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_WritesResolvedFields(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()
	status := domain.OrderStatusReady
	price := dec("150")
	balance := dec("130")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, price = ?, balance = ?, updated_at = ? WHERE id = ?")).
		WithArgs("Ready", price, balance, sqlmock.AnyArg(), "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), db, "o1", domain.OrderPatch{
		Status:    &status,
		Price:     &price,
		Balance:   &balance,
		UpdatedAt: created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()
	notes := "x"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET notes = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), db, "missing", domain.OrderPatch{Notes: &notes})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_Update_EmptyPatchChecksExistence(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSQLOrderRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	err := repo.Update(context.Background(), db, "missing", domain.OrderPatch{})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Integration Tests

func TestOrderRepository_RoundTrip_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSQLOrderRepository()
	ctx := context.Background()

	err := repo.Insert(ctx, db, &domain.Order{
		ID:           "it-o1",
		CustomerID:   "it-c1",
		Item:         "Blue suit",
		Measurements: map[string]any{"chest": "40"},
		Price:        dec("100"),
		Deposit:      dec("20"),
		Balance:      dec("80"),
		Status:       domain.OrderStatusPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	require.NoError(t, err)

	deposit := dec("100")
	balance := dec("0")
	require.NoError(t, repo.Update(ctx, db, "it-o1", domain.OrderPatch{Deposit: &deposit, Balance: &balance, UpdatedAt: created.Add(time.Minute)}))

	o, err := repo.FindByID(ctx, db, "it-o1", false)
	require.NoError(t, err)
	assert.True(t, dec("0").Equal(o.Balance))
	assert.Equal(t, map[string]any{"chest": "40"}, o.Measurements)

	orders, err := repo.FindByCustomer(ctx, db, "it-c1", false)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
