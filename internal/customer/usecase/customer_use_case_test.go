package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/order/service"
	"atelier/internal/store"
	"atelier/internal/store/memstore"
)

type mockRecomputer struct {
	RecomputeFunc func(ctx context.Context, customerID string) (decimal.Decimal, error)
}

func (m *mockRecomputer) Recompute(ctx context.Context, customerID string) (decimal.Decimal, error) {
	return m.RecomputeFunc(ctx, customerID)
}

func newTestCustomerUseCase(gw *memstore.Store, recomputer BalanceRecomputer) *CustomerUseCase {
	uc := NewCustomerUseCase(gw, recomputer, zap.NewNop())

	clock := time.Date(2025, 11, 23, 2, 15, 0, 0, time.UTC)
	uc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	seq := 0
	uc.newID = func() string {
		seq++
		return fmt.Sprintf("c%d", seq)
	}
	return uc
}

func strPtr(s string) *string { return &s }

func TestCreateCustomer(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, nil)

	pickup := time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC)
	c, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: "Ana", Phone: " +15550001 ", PickupDate: &pickup})
	require.NoError(t, err)

	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "15550001", c.Phone)
	assert.True(t, c.Balance.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	stored, err := gw.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, pickup, *stored.PickupDate)
}

func TestCreateCustomer_Validation(t *testing.T) {
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, nil)

	_, err := uc.CreateCustomer(context.Background(), CreateCustomerInput{Name: " "})

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Details, 2)

	all, err := gw.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListCustomers_NewestFirst(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, nil)

	empty, err := uc.ListCustomers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	for _, name := range []string{"first", "second", "third"} {
		_, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: name, Phone: "+1"})
		require.NoError(t, err)
	}

	customers, err := uc.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, "third", customers[0].Name)
	assert.Equal(t, "first", customers[2].Name)
}

func TestUpdateCustomer(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, nil)

	created, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: "Ana", Phone: "+1", Notes: "keep"})
	require.NoError(t, err)

	updated, err := uc.UpdateCustomer(ctx, created.ID, domain.CustomerPatch{Phone: strPtr("+2")})
	require.NoError(t, err)
	assert.Equal(t, "2", updated.Phone)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, "keep", updated.Notes)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = uc.UpdateCustomer(ctx, created.ID, domain.CustomerPatch{Name: strPtr("")})
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)

	_, err = uc.UpdateCustomer(ctx, created.ID, domain.CustomerPatch{Phone: strPtr("( ) -")})
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)

	updated, err = uc.UpdateCustomer(ctx, created.ID, domain.CustomerPatch{Phone: strPtr("+1 (555) 000-1")})
	require.NoError(t, err)
	assert.Equal(t, "15550001", updated.Phone)

	_, err = uc.UpdateCustomer(ctx, "ghost", domain.CustomerPatch{Name: strPtr("x")})
	_, ok = apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestDeleteCustomer_LeavesOrders(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, nil)

	created, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: "Ana", Phone: "+1"})
	require.NoError(t, err)
	require.NoError(t, gw.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertOrder(ctx, &domain.Order{ID: "o1", CustomerID: created.ID})
	}))

	require.NoError(t, uc.DeleteCustomer(ctx, created.ID))

	_, err = uc.GetCustomer(ctx, created.ID)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	orders, err := gw.ListOrdersByCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	err = uc.DeleteCustomer(ctx, created.ID)
	_, ok = apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestRecomputeBalance_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	uc := newTestCustomerUseCase(gw, service.NewBalanceReconciler(gw, zap.NewNop(), nil))

	created, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: "Ana", Phone: "+1"})
	require.NoError(t, err)
	require.NoError(t, gw.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertOrder(ctx, &domain.Order{ID: "o1", CustomerID: created.ID, Balance: decimal.NewFromInt(80)}); err != nil {
			return err
		}
		return tx.InsertOrder(ctx, &domain.Order{ID: "o2", CustomerID: created.ID, Balance: decimal.RequireFromString("12.5")})
	}))
	require.NoError(t, gw.UpdateCustomerBalance(ctx, created.ID, decimal.NewFromInt(999), time.Now()))

	balance, err := uc.RecomputeBalance(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("92.5").Equal(balance))

	stored, err := gw.GetCustomer(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(stored.Balance))
}

func TestRecomputeBalance_Errors(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New(store.DefaultRetryPolicy(), zap.NewNop())
	boom := errors.New("timeout")
	uc := newTestCustomerUseCase(gw, &mockRecomputer{
		RecomputeFunc: func(ctx context.Context, customerID string) (decimal.Decimal, error) {
			return decimal.Zero, boom
		},
	})

	_, err := uc.RecomputeBalance(ctx, "ghost")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	created, err := uc.CreateCustomer(ctx, CreateCustomerInput{Name: "Ana", Phone: "+1"})
	require.NoError(t, err)

	_, err = uc.RecomputeBalance(ctx, created.ID)
	assert.ErrorIs(t, err, boom)
}
