package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/infrastructure/sqldb"
)

const customerColumns = `id, name, phone, address, pickup_date, fitting_date, notes, balance, created_at, updated_at`

// SQLCustomerRepository runs customer queries against whatever Querier it is
// handed, so the same code serves plain reads and transactions.
type SQLCustomerRepository struct{}

func NewSQLCustomerRepository() *SQLCustomerRepository {
	return &SQLCustomerRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c           domain.Customer
		address     sql.NullString
		notes       sql.NullString
		pickupDate  sql.NullTime
		fittingDate sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &address, &pickupDate, &fittingDate,
		&notes, &c.Balance, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Address = address.String
	c.Notes = notes.String
	c.PickupDate = timePtr(pickupDate)
	c.FittingDate = timePtr(fittingDate)

	return &c, nil
}

// FindByID loads a customer. With forUpdate the row stays locked until the
// surrounding transaction ends.
func (r *SQLCustomerRepository) FindByID(ctx context.Context, q sqldb.Querier, id string, forUpdate bool) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCustomer(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("customer with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer by id: %w", err)
	}

	return c, nil
}

func (r *SQLCustomerRepository) List(ctx context.Context, q sqldb.Querier) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC`
	return r.query(ctx, q, "listing customers", query)
}

func (r *SQLCustomerRepository) FindByPhone(ctx context.Context, q sqldb.Querier, phone string) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = ?`
	return r.query(ctx, q, "querying customers by phone", query, phone)
}

// FindWithAppointmentBetween returns customers whose pickup or fitting date
// falls in [from, to).
func (r *SQLCustomerRepository) FindWithAppointmentBetween(ctx context.Context, q sqldb.Querier, kind domain.AppointmentKind, from, to time.Time) ([]domain.Customer, error) {
	var column string
	switch kind {
	case domain.AppointmentPickup:
		column = "pickup_date"
	case domain.AppointmentFitting:
		column = "fitting_date"
	default:
		return nil, fmt.Errorf("unknown appointment kind %q", kind)
	}

	query := `SELECT ` + customerColumns + ` FROM customers WHERE ` + column + ` >= ? AND ` + column + ` < ?`
	return r.query(ctx, q, "querying customers by appointment", query, from, to)
}

func (r *SQLCustomerRepository) query(ctx context.Context, q sqldb.Querier, op, query string, args ...any) ([]domain.Customer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer row: %w", err)
		}
		customers = append(customers, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customer rows: %w", err)
	}

	return customers, nil
}

func (r *SQLCustomerRepository) Insert(ctx context.Context, q sqldb.Querier, c *domain.Customer) error {
	query := `INSERT INTO customers (` + customerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Address, nullTime(c.PickupDate), nullTime(c.FittingDate),
		c.Notes, c.Balance, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting customer: %w", err)
	}

	return nil
}

// Update writes the supplied fields of patch and stamps updated_at.
func (r *SQLCustomerRepository) Update(ctx context.Context, q sqldb.Querier, id string, patch domain.CustomerPatch, updatedAt time.Time) error {
	var (
		sets []string
		args []any
	)

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *patch.Phone)
	}
	if patch.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *patch.Address)
	}
	if patch.PickupDate != nil {
		sets = append(sets, "pickup_date = ?")
		args = append(args, *patch.PickupDate)
	}
	if patch.FittingDate != nil {
		sets = append(sets, "fitting_date = ?")
		args = append(args, *patch.FittingDate)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt, id)

	query := `UPDATE customers SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}

	return requireRow(result, id)
}

func (r *SQLCustomerRepository) UpdateBalance(ctx context.Context, q sqldb.Querier, id string, balance decimal.Decimal, updatedAt time.Time) error {
	query := `UPDATE customers SET balance = ?, updated_at = ? WHERE id = ?`

	result, err := q.ExecContext(ctx, query, balance, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating customer balance: %w", err)
	}

	return requireRow(result, id)
}

// Delete removes the customer row only; its orders are left in place.
func (r *SQLCustomerRepository) Delete(ctx context.Context, q sqldb.Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}

	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("customer with id %s not found", id))
	}

	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
