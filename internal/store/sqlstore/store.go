// Package sqlstore implements store.Gateway over database/sql for MySQL and
// Postgres. Transactions run at REPEATABLE READ and lock the customer and
// order rows they read; deadlocks and serialization failures are reported as
// store.ErrConflict so that Transact retries them.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	customerrepo "atelier/internal/customer/repository"
	"atelier/internal/domain"
	"atelier/internal/infrastructure/sqldb"
	notificationrepo "atelier/internal/notification/repository"
	orderrepo "atelier/internal/order/repository"
	"atelier/internal/store"
)

const defaultTxTimeout = 5 * time.Second

type Store struct {
	db      *sql.DB
	q       sqldb.Querier
	dialect sqldb.Dialect

	customers     *customerrepo.SQLCustomerRepository
	orders        *orderrepo.SQLOrderRepository
	notifications *notificationrepo.SQLNotificationRepository

	policy    store.RetryPolicy
	txTimeout time.Duration
	logger    *zap.Logger
}

var _ store.Gateway = (*Store)(nil)

func New(db *sql.DB, dialect sqldb.Dialect, policy store.RetryPolicy, txTimeout time.Duration, logger *zap.Logger) *Store {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &Store{
		db:            db,
		q:             sqldb.Bind(dialect, db),
		dialect:       dialect,
		customers:     customerrepo.NewSQLCustomerRepository(),
		orders:        orderrepo.NewSQLOrderRepository(),
		notifications: notificationrepo.NewSQLNotificationRepository(),
		policy:        policy,
		txTimeout:     txTimeout,
		logger:        logger,
	}
}

func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return store.Retry(ctx, s.policy, s.logger, "sql transaction", func(ctx context.Context) error {
		return s.transactOnce(ctx, fn)
	})
}

func (s *Store) transactOnce(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	sqlTx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	// Rollback after a successful Commit is a no-op.
	defer sqlTx.Rollback()

	t := &tx{
		q:     sqldb.Bind(s.dialect, sqlTx),
		store: s,
	}

	if err := fn(txCtx, t); err != nil {
		return classify(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}

	return nil
}

// classify marks deadlocks, lock wait timeouts and serialization failures as
// store.ErrConflict while keeping the driver error in the chain.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrConflict) {
		return err
	}
	if IsConflict(err) {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	return err
}

func IsConflict(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	return false
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.customers.FindByID(ctx, s.q, id, false)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.customers.List(ctx, s.q)
}

func (s *Store) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	return s.customers.Insert(ctx, s.q, customer)
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch, updatedAt time.Time) error {
	return s.customers.Update(ctx, s.q, id, patch, updatedAt)
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	return s.customers.Delete(ctx, s.q, id)
}

func (s *Store) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	return s.customers.FindByPhone(ctx, s.q, phone)
}

func (s *Store) UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error {
	return s.customers.UpdateBalance(ctx, s.q, id, balance, updatedAt)
}

func (s *Store) ListCustomersWithAppointmentBetween(ctx context.Context, kind domain.AppointmentKind, from, to time.Time) ([]domain.Customer, error) {
	return s.customers.FindWithAppointmentBetween(ctx, s.q, kind, from, to)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, s.q, id, false)
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.orders.FindByCustomer(ctx, s.q, customerID, false)
}

func (s *Store) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	return s.orders.Update(ctx, s.q, id, patch)
}

func (s *Store) InsertNotificationLog(ctx context.Context, entry *domain.NotificationLog) error {
	return s.notifications.Insert(ctx, s.q, entry)
}

func (s *Store) NotificationSentSince(ctx context.Context, customerID, notificationType, subType string, since time.Time) (bool, error) {
	return s.notifications.ExistsSentSince(ctx, s.q, customerID, notificationType, subType, since)
}
