package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

// ErrConflict marks a transaction the store aborted because a concurrent
// writer touched the same records. Transact retries it before giving up.
var ErrConflict = errors.New("store: transaction conflict")

// Tx is the view of the store available inside Transact. Reads of customers
// and orders lock the row (SQL) or join the read set (memory) so that a
// conflicting commit aborts the transaction.
type Tx interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error
	InsertOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// Gateway is the persistence boundary of the service. It is constructed once
// at startup and shared by every use case.
type Gateway interface {
	// Transact runs fn in a transaction, retrying it when the store reports
	// ErrConflict. fn may run more than once and must not have side effects
	// outside tx.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch, updatedAt time.Time) error
	DeleteCustomer(ctx context.Context, id string) error
	FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error)
	UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error
	ListCustomersWithAppointmentBetween(ctx context.Context, kind domain.AppointmentKind, from, to time.Time) ([]domain.Customer, error)

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error

	InsertNotificationLog(ctx context.Context, entry *domain.NotificationLog) error
	// NotificationSentSince reports whether a notification of that type and
	// sub-type was delivered to the customer at or after since.
	NotificationSentSince(ctx context.Context, customerID, notificationType, subType string, since time.Time) (bool, error)
}
