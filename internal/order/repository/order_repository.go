package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/infrastructure/sqldb"
)

const orderColumns = `id, customer_id, item, measurements, price, deposit, balance, status, pickup_date, fitting_date, notes, created_at, updated_at`

type SQLOrderRepository struct{}

func NewSQLOrderRepository() *SQLOrderRepository {
	return &SQLOrderRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o            domain.Order
		status       string
		measurements sql.NullString
		notes        sql.NullString
		pickupDate   sql.NullTime
		fittingDate  sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Item, &measurements, &o.Price, &o.Deposit, &o.Balance,
		&status, &pickupDate, &fittingDate, &notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.Notes = notes.String
	o.PickupDate = timePtr(pickupDate)
	o.FittingDate = timePtr(fittingDate)

	o.Measurements, err = decodeMeasurements(measurements)
	if err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *SQLOrderRepository) FindByID(ctx context.Context, q sqldb.Querier, id string, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return o, nil
}

// FindByCustomer returns the customer's orders in storage order. Callers sort
// in memory.
func (r *SQLOrderRepository) FindByCustomer(ctx context.Context, q sqldb.Querier, customerID string, forUpdate bool) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("querying orders by customer: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, nil
}

func (r *SQLOrderRepository) Insert(ctx context.Context, q sqldb.Querier, o *domain.Order) error {
	measurements, err := encodeMeasurements(o.Measurements)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = q.ExecContext(ctx, query,
		o.ID, o.CustomerID, o.Item, measurements, o.Price, o.Deposit, o.Balance,
		string(o.Status), nullTime(o.PickupDate), nullTime(o.FittingDate), o.Notes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

// Update writes the supplied fields of an already resolved patch. Balance and
// updated_at are written when the patch carries them.
func (r *SQLOrderRepository) Update(ctx context.Context, q sqldb.Querier, id string, patch domain.OrderPatch) error {
	var (
		sets []string
		args []any
	)

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Measurements != nil {
		m, err := encodeMeasurements(patch.Measurements)
		if err != nil {
			return err
		}
		sets = append(sets, "measurements = ?")
		args = append(args, m)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.Deposit != nil {
		sets = append(sets, "deposit = ?")
		args = append(args, *patch.Deposit)
	}
	if patch.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, *patch.Balance)
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
	if !patch.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at = ?")
		args = append(args, patch.UpdatedAt)
	}

	if len(sets) == 0 {
		_, err := r.FindByID(ctx, q, id, false)
		return err
	}

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}

	return nil
}

func encodeMeasurements(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding measurements: %w", err)
	}
	return string(b), nil
}

func decodeMeasurements(s sql.NullString) (map[string]any, error) {
	m := map[string]any{}
	if !s.Valid || s.String == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("decoding measurements: %w", err)
	}
	return m, nil
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
