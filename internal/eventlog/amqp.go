package eventlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpExchange = "ledgerbus.events"

// AMQPLog implements Log on a RabbitMQ topic exchange. Topics map to routing
// keys and consumer groups to durable queues; manual acknowledgment gives
// at-least-once delivery.
type AMQPLog struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewAMQPLog declares the exchange and returns a broker-backed event log.
func NewAMQPLog(conn *amqp.Connection, logger *slog.Logger) (*AMQPLog, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(channel); err != nil {
		channel.Close()
		return nil, err
	}

	return &AMQPLog{conn: conn, channel: channel, logger: logger}, nil
}

// Publish sends the payload to the exchange with the topic as routing key.
func (l *AMQPLog) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return l.channel.PublishWithContext(ctx, amqpExchange, topic, false, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"partition_key": key},
		Body:         payload,
	})
}

// Subscribe binds a durable queue named after the group to the topics and
// consumes it until ctx is done.
func (l *AMQPLog) Subscribe(ctx context.Context, topics []string, group string, handler Handler) error {
	channel, err := l.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer channel.Close()

	if err := declareExchange(channel); err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(group, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", group, err)
	}
	for _, topic := range topics {
		if err := channel.QueueBind(queue.Name, topic, amqpExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", queue.Name, topic, err)
		}
	}

	deliveries, err := channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for group %s", group)
			}

			msg := Message{
				ID:      delivery.MessageId,
				Topic:   delivery.RoutingKey,
				Payload: delivery.Body,
			}
			if key, ok := delivery.Headers["partition_key"].(string); ok {
				msg.Key = key
			}

			if err := handler(ctx, msg); err != nil {
				l.logger.Error("message requeued", "topic", msg.Topic, "id", msg.ID, "error", err)
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close releases the publishing channel.
func (l *AMQPLog) Close() error {
	return l.channel.Close()
}

func declareExchange(channel *amqp.Channel) error {
	if err := channel.ExchangeDeclare(amqpExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}
