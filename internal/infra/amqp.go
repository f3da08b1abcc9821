package infra

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPConnection dials RabbitMQ and returns the live connection.
func NewAMQPConnection(url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	return conn, nil
}
