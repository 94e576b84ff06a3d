package repository

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/domain"
	"atelier/internal/infrastructure/sqldb"
)

type SQLNotificationRepository struct{}

func NewSQLNotificationRepository() *SQLNotificationRepository {
	return &SQLNotificationRepository{}
}

func (r *SQLNotificationRepository) Insert(ctx context.Context, q sqldb.Querier, entry *domain.NotificationLog) error {
	query := `INSERT INTO notifications (id, customer_id, notification_type, sub_type, message, status, sent_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		entry.ID, entry.CustomerID, entry.Type, entry.SubType, entry.Message, entry.Status, entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}

	return nil
}

// ExistsSentSince reports whether a delivered notification matching the
// customer, type and sub-type was recorded at or after since.
func (r *SQLNotificationRepository) ExistsSentSince(ctx context.Context, q sqldb.Querier, customerID, notificationType, subType string, since time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE customer_id = ? AND notification_type = ? AND sub_type = ? AND status = ? AND sent_at >= ?`

	var count int
	err := q.QueryRowContext(ctx, query, customerID, notificationType, subType, domain.NotificationStatusSent, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking notification log: %w", err)
	}

	return count > 0, nil
}
