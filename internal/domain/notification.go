package domain

import "time"

const (
	NotificationTypeReminder    = "reminder"
	NotificationTypeOrderStatus = "order_status"

	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

type NotificationLog struct {
	ID         string
	CustomerID string
	Type       string
	SubType    string
	Message    string
	Status     string
	SentAt     time.Time
}
