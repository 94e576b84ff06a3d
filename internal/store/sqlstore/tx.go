package sqlstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
	"atelier/internal/infrastructure/sqldb"
)

// tx reads with FOR UPDATE so that rows it depends on stay locked until
// commit.
type tx struct {
	q     sqldb.Querier
	store *Store
}

func (t *tx) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return t.store.customers.FindByID(ctx, t.q, id, true)
}

func (t *tx) UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error {
	return t.store.customers.UpdateBalance(ctx, t.q, id, balance, updatedAt)
}

func (t *tx) InsertOrder(ctx context.Context, order *domain.Order) error {
	return t.store.orders.Insert(ctx, t.q, order)
}

func (t *tx) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return t.store.orders.FindByID(ctx, t.q, id, true)
}

func (t *tx) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	return t.store.orders.Update(ctx, t.q, id, patch)
}

func (t *tx) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return t.store.orders.FindByCustomer(ctx, t.q, customerID, true)
}
