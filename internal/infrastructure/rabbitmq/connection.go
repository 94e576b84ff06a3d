package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"atelier/internal/config"
)

// NewConnection dials the broker and opens the channel used for outbound
// messages. Closing the connection closes the channel.
func NewConnection(cfg config.RabbitMQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	return conn, ch, nil
}
