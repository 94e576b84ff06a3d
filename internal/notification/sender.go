package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Sender delivers a single text message.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// OutboundSMS is the message an external relay consumes from the SMS queue
// and hands to the SMS provider.
type OutboundSMS struct {
	To       string    `json:"to"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queuedAt"`
}

// AMQPChannel is the part of *amqp.Channel the sender uses.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPSender struct {
	channel AMQPChannel
	queue   string
	logger  *zap.Logger
	now     func() time.Time
}

// NewAMQPSender declares the durable queue and returns a sender publishing
// to it through the default exchange.
func NewAMQPSender(channel AMQPChannel, queue string, logger *zap.Logger) (*AMQPSender, error) {
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	return &AMQPSender{
		channel: channel,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *AMQPSender) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(OutboundSMS{
		To:       to,
		Body:     body,
		QueuedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding sms: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publishing sms to %s: %w", s.queue, err)
	}

	s.logger.Debug("sms queued", zap.String("queue", s.queue), zap.String("to", to))
	return nil
}

// LogSender only logs the message. It is used when no broker is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("mock sms", zap.String("to", to), zap.String("body", body))
	return nil
}
