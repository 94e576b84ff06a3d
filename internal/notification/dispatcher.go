package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
)

const readySuffix = " It is now ready for pickup!"

// StatusChangeMessage is the text sent to a customer when an order changes
// status.
func StatusChangeMessage(customerName, item string, status domain.OrderStatus) string {
	msg := fmt.Sprintf("Hi %s, the status of your order (%s) has been updated to: %s.", customerName, item, status)
	if status == domain.OrderStatusReady {
		msg += readySuffix
	}
	return msg
}

type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: logger,
	}
}

// SendStatusChangeNotification is best effort. Failures are logged and never
// reach the caller.
func (d *Dispatcher) SendStatusChangeNotification(ctx context.Context, phone, customerName, item string, status domain.OrderStatus) {
	body := StatusChangeMessage(customerName, item, status)

	if err := d.sender.SendSMS(ctx, phone, body); err != nil {
		nerr := apperrors.NewNotificationError(phone, err)
		d.logger.Error("status change notification failed",
			zap.String("status", string(status)),
			zap.Error(nerr),
		)
		return
	}

	d.logger.Info("status change notification sent", zap.String("status", string(status)))
}
