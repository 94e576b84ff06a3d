// Package memstore is an in-process Gateway with optimistic concurrency
// control. Every customer, order and per-customer order set carries a
// version; a transaction remembers the versions it read, buffers its writes
// and only commits if none of those versions moved in the meantime.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/store"
)

type customerRecord struct {
	customer domain.Customer
	version  uint64
}

type orderRecord struct {
	order   domain.Order
	version uint64
}

type Store struct {
	mu sync.RWMutex

	seq uint64

	customers       map[string]*customerRecord
	customerIDs     []string
	customerVersion map[string]uint64

	orders           map[string]*orderRecord
	ordersByCustomer map[string][]string
	orderSetVersion  map[string]uint64

	notifications []domain.NotificationLog

	policy store.RetryPolicy
	logger *zap.Logger
}

var _ store.Gateway = (*Store)(nil)

func New(policy store.RetryPolicy, logger *zap.Logger) *Store {
	return &Store{
		customers:        make(map[string]*customerRecord),
		customerVersion:  make(map[string]uint64),
		orders:           make(map[string]*orderRecord),
		ordersByCustomer: make(map[string][]string),
		orderSetVersion:  make(map[string]uint64),
		policy:           policy,
		logger:           logger,
	}
}

func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return store.Retry(ctx, s.policy, s.logger, "memstore transaction", func(ctx context.Context) error {
		tx := newTx(s)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit()
	})
}

// next must be called with mu held for writing.
func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.customers[id]
	if !ok {
		return nil, customerNotFound(id)
	}
	c := cloneCustomer(rec.customer)
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customerIDs))
	for _, id := range s.customerIDs {
		out = append(out, cloneCustomer(s.customers[id].customer))
	}
	return out, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return fmt.Errorf("customer %s already exists", customer.ID)
	}

	v := s.next()
	s.customers[customer.ID] = &customerRecord{customer: cloneCustomer(*customer), version: v}
	s.customerVersion[customer.ID] = v
	s.customerIDs = append(s.customerIDs, customer.ID)
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.customers[id]
	if !ok {
		return customerNotFound(id)
	}

	v := s.next()
	rec.customer = rec.customer.Apply(patch, updatedAt)
	rec.version = v
	s.customerVersion[id] = v
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return customerNotFound(id)
	}

	delete(s.customers, id)
	s.customerVersion[id] = s.next()
	for i, cid := range s.customerIDs {
		if cid == id {
			s.customerIDs = append(s.customerIDs[:i], s.customerIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Customer
	for _, id := range s.customerIDs {
		if c := s.customers[id].customer; c.Phone == phone {
			out = append(out, cloneCustomer(c))
		}
	}
	return out, nil
}

func (s *Store) UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.customers[id]
	if !ok {
		return customerNotFound(id)
	}

	v := s.next()
	rec.customer.Balance = balance
	rec.customer.UpdatedAt = updatedAt
	rec.version = v
	s.customerVersion[id] = v
	return nil
}

// ListCustomersWithAppointmentBetween returns customers whose appointment of
// the given kind falls in [from, to).
func (s *Store) ListCustomersWithAppointmentBetween(ctx context.Context, kind domain.AppointmentKind, from, to time.Time) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Customer
	for _, id := range s.customerIDs {
		c := s.customers[id].customer
		d := c.AppointmentDate(kind)
		if d == nil || d.Before(from) || !d.Before(to) {
			continue
		}
		out = append(out, cloneCustomer(c))
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}
	o := cloneOrder(rec.order)
	return &o, nil
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.ordersByCustomer[customerID]
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneOrder(s.orders[id].order))
	}
	return out, nil
}

func (s *Store) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[id]
	if !ok {
		return orderNotFound(id)
	}

	rec.order = rec.order.Apply(patch)
	rec.version = s.next()
	return nil
}

func (s *Store) InsertNotificationLog(ctx context.Context, entry *domain.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, *entry)
	return nil
}

func (s *Store) NotificationSentSince(ctx context.Context, customerID, notificationType, subType string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.CustomerID == customerID && n.Type == notificationType && n.SubType == subType &&
			n.Status == domain.NotificationStatusSent && !n.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// NotificationLogs returns a copy of every recorded notification.
func (s *Store) NotificationLogs() []domain.NotificationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.NotificationLog, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func customerNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("customer with id %s not found", id))
}

func orderNotFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
}

func cloneCustomer(c domain.Customer) domain.Customer {
	out := c
	out.PickupDate = cloneTime(c.PickupDate)
	out.FittingDate = cloneTime(c.FittingDate)
	return out
}

func cloneOrder(o domain.Order) domain.Order {
	out := o
	out.Measurements = domain.CloneMeasurements(o.Measurements)
	out.PickupDate = cloneTime(o.PickupDate)
	out.FittingDate = cloneTime(o.FittingDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
