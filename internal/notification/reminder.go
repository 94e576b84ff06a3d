package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"atelier/internal/domain"
)

const reminderDateLayout = "Mon Jan 02 2006"

type ReminderGateway interface {
	ListCustomersWithAppointmentBetween(ctx context.Context, kind domain.AppointmentKind, from, to time.Time) ([]domain.Customer, error)
	InsertNotificationLog(ctx context.Context, entry *domain.NotificationLog) error
	NotificationSentSince(ctx context.Context, customerID, notificationType, subType string, since time.Time) (bool, error)
}

// ReminderMessage is the text sent the day before an appointment. The date is
// rendered in the business timezone.
func ReminderMessage(customerName string, kind domain.AppointmentKind, date time.Time, loc *time.Location) string {
	return fmt.Sprintf("Hello %s, this is a reminder for your %s scheduled on %s.",
		customerName, kind, date.In(loc).Format(reminderDateLayout))
}

// startOfDay returns the UTC instant at which now's calendar day begins in loc.
func startOfDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}

// TomorrowWindow returns the UTC bounds [from, to) of the calendar day after
// now, as seen in loc.
func TomorrowWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	from := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	to := time.Date(y, m, d+2, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}

type ReminderService struct {
	gateway  ReminderGateway
	sender   Sender
	location *time.Location
	logger   *zap.Logger
}

func NewReminderService(gateway ReminderGateway, sender Sender, location *time.Location, logger *zap.Logger) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{
		gateway:  gateway,
		sender:   sender,
		location: location,
		logger:   logger,
	}
}

// SendDailyReminders texts every customer with a pickup or fitting tomorrow
// and records each attempt. It returns the number of reminders delivered. A
// failure for one customer does not stop the run. Customers already reminded
// today are skipped, so running it twice on the same local day is harmless.
func (s *ReminderService) SendDailyReminders(ctx context.Context, now time.Time) (int, error) {
	from, to := TomorrowWindow(now, s.location)
	s.logger.Info("running daily reminders",
		zap.String("location", s.location.String()),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	sent := 0
	for _, kind := range []domain.AppointmentKind{domain.AppointmentPickup, domain.AppointmentFitting} {
		customers, err := s.gateway.ListCustomersWithAppointmentBetween(ctx, kind, from, to)
		if err != nil {
			return sent, fmt.Errorf("listing %s appointments: %w", kind, err)
		}

		for _, c := range customers {
			if s.remind(ctx, c, kind, now) {
				sent++
			}
		}
	}

	s.logger.Info("daily reminders finished", zap.Int("sent", sent))
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, c domain.Customer, kind domain.AppointmentKind, now time.Time) bool {
	logger := s.logger.With(zap.String("customerId", c.ID), zap.String("kind", string(kind)))

	date := c.AppointmentDate(kind)
	if date == nil {
		return false
	}

	already, err := s.gateway.NotificationSentSince(ctx, c.ID, domain.NotificationTypeReminder, string(kind), startOfDay(now, s.location))
	if err != nil {
		logger.Warn("could not check earlier reminders, sending anyway", zap.Error(err))
	} else if already {
		logger.Debug("reminder already sent today")
		return false
	}

	message := ReminderMessage(c.Name, kind, *date, s.location)
	status := domain.NotificationStatusSent
	if err := s.sender.SendSMS(ctx, c.Phone, message); err != nil {
		logger.Error("failed to send reminder", zap.Error(err))
		status = domain.NotificationStatusFailed
	}

	entry := &domain.NotificationLog{
		ID:         uuid.New().String(),
		CustomerID: c.ID,
		Type:       domain.NotificationTypeReminder,
		SubType:    string(kind),
		Message:    message,
		Status:     status,
		SentAt:     now.UTC(),
	}
	if err := s.gateway.InsertNotificationLog(ctx, entry); err != nil {
		logger.Error("failed to record reminder", zap.Error(err))
	}

	return status == domain.NotificationStatusSent
}

type DailyReminder interface {
	SendDailyReminders(ctx context.Context, now time.Time) (int, error)
}

// ReminderTrigger runs the daily reminders once per local date, on the first
// check at or after the configured hour.
type ReminderTrigger struct {
	reminder DailyReminder
	hour     int
	location *time.Location
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	lastRun string
}

func NewReminderTrigger(reminder DailyReminder, hour int, location *time.Location, interval time.Duration, logger *zap.Logger) *ReminderTrigger {
	if location == nil {
		location = time.UTC
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderTrigger{
		reminder: reminder,
		hour:     hour,
		location: location,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run checks on every interval until ctx is done.
func (t *ReminderTrigger) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("reminder trigger started", zap.Int("hour", t.hour), zap.String("location", t.location.String()))
	t.check(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("reminder trigger stopped")
			return
		case <-ticker.C:
			t.check(ctx)
		}
	}
}

// check reports whether a run was started.
func (t *ReminderTrigger) check(ctx context.Context) bool {
	now := t.now()
	local := now.In(t.location)
	if local.Hour() < t.hour {
		return false
	}

	date := local.Format("2006-01-02")
	if date == t.lastRun {
		return false
	}
	t.lastRun = date

	if _, err := t.reminder.SendDailyReminders(ctx, now); err != nil {
		t.logger.Error("daily reminders failed", zap.String("date", date), zap.Error(err))
	}
	return true
}
