package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
	"atelier/internal/store"
)

type tx struct {
	s *Store

	customerReads map[string]uint64
	orderReads    map[string]uint64
	orderSetReads map[string]uint64

	customerWrites map[string]domain.Customer
	orderWrites    map[string]domain.Order
	inserted       []string
}

func newTx(s *Store) *tx {
	return &tx{
		s:              s,
		customerReads:  make(map[string]uint64),
		orderReads:     make(map[string]uint64),
		orderSetReads:  make(map[string]uint64),
		customerWrites: make(map[string]domain.Customer),
		orderWrites:    make(map[string]domain.Order),
	}
}

func (t *tx) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if c, ok := t.customerWrites[id]; ok {
		out := cloneCustomer(c)
		return &out, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if _, seen := t.customerReads[id]; !seen {
		t.customerReads[id] = t.s.customerVersion[id]
	}

	rec, ok := t.s.customers[id]
	if !ok {
		return nil, customerNotFound(id)
	}
	out := cloneCustomer(rec.customer)
	return &out, nil
}

func (t *tx) UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error {
	c, err := t.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	c.Balance = balance
	c.UpdatedAt = updatedAt
	t.customerWrites[id] = *c
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, order *domain.Order) error {
	if _, dup := t.orderWrites[order.ID]; dup {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	t.orderWrites[order.ID] = cloneOrder(*order)
	t.inserted = append(t.inserted, order.ID)
	return nil
}

func (t *tx) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if o, ok := t.orderWrites[id]; ok {
		out := cloneOrder(o)
		return &out, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	rec, ok := t.s.orders[id]
	if _, seen := t.orderReads[id]; !seen {
		var v uint64
		if ok {
			v = rec.version
		}
		t.orderReads[id] = v
	}
	if !ok {
		return nil, orderNotFound(id)
	}
	out := cloneOrder(rec.order)
	return &out, nil
}

func (t *tx) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	o, err := t.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	t.orderWrites[id] = o.Apply(patch)
	return nil
}

// ListOrdersByCustomer returns committed orders in insertion order with this
// transaction's writes laid over them, followed by orders it inserted.
func (t *tx) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	t.s.mu.RLock()
	if _, seen := t.orderSetReads[customerID]; !seen {
		t.orderSetReads[customerID] = t.s.orderSetVersion[customerID]
	}

	ids := t.s.ordersByCustomer[customerID]
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		rec := t.s.orders[id]
		if _, seen := t.orderReads[id]; !seen {
			t.orderReads[id] = rec.version
		}
		if o, ok := t.orderWrites[id]; ok {
			out = append(out, cloneOrder(o))
			continue
		}
		out = append(out, cloneOrder(rec.order))
	}
	t.s.mu.RUnlock()

	for _, id := range t.inserted {
		if o := t.orderWrites[id]; o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range t.customerReads {
		if s.customerVersion[id] != v {
			return fmt.Errorf("customer %s changed: %w", id, store.ErrConflict)
		}
	}
	for id, v := range t.orderReads {
		var current uint64
		if rec, ok := s.orders[id]; ok {
			current = rec.version
		}
		if current != v {
			return fmt.Errorf("order %s changed: %w", id, store.ErrConflict)
		}
	}
	for id, v := range t.orderSetReads {
		if s.orderSetVersion[id] != v {
			return fmt.Errorf("orders of customer %s changed: %w", id, store.ErrConflict)
		}
	}
	for _, id := range t.inserted {
		if _, exists := s.orders[id]; exists {
			return fmt.Errorf("order %s already exists", id)
		}
	}

	for id, c := range t.customerWrites {
		v := s.next()
		s.customers[id] = &customerRecord{customer: c, version: v}
		s.customerVersion[id] = v
	}

	isNew := make(map[string]bool, len(t.inserted))
	for _, id := range t.inserted {
		isNew[id] = true
		o := t.orderWrites[id]
		s.orders[id] = &orderRecord{order: o, version: s.next()}
		s.ordersByCustomer[o.CustomerID] = append(s.ordersByCustomer[o.CustomerID], id)
		s.orderSetVersion[o.CustomerID] = s.next()
	}
	for id, o := range t.orderWrites {
		if isNew[id] {
			continue
		}
		s.orders[id] = &orderRecord{order: o, version: s.next()}
	}

	return nil
}
