// Package eventlog provides the ordered, at-least-once delivery channel that
// carries committed ledger mutations to downstream projections.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message is one delivered event envelope. Key is the partition key; messages
// sharing a key preserve their publish order relative to one another.
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload []byte
}

// Handler processes one delivered message. A nil return acknowledges the
// message; anything else leaves it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Log is the event transport contract: append-only publish and group-based
// at-least-once consumption with consumer-controlled acknowledgment.
type Log interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Subscribe(ctx context.Context, topics []string, group string, handler Handler) error
}

const deadLetterSuffix = ".dlq"

// DeadLetterTopic names the side channel holding unprocessable messages for a topic.
func DeadLetterTopic(topic string) string {
	return topic + deadLetterSuffix
}

// DeadLetter wraps a message that could not be processed, preserving the
// original payload for inspection or replay.
type DeadLetter struct {
	SourceTopic string    `json:"source_topic"`
	Reason      string    `json:"reason"`
	Payload     []byte    `json:"payload"`
	FailedAt    time.Time `json:"failed_at"`
}

// PublishDeadLetter routes msg to its topic's dead-letter channel together
// with the failure reason.
func PublishDeadLetter(ctx context.Context, log Log, msg Message, reason string) error {
	payload, err := json.Marshal(DeadLetter{
		SourceTopic: msg.Topic,
		Reason:      reason,
		Payload:     msg.Payload,
		FailedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	return log.Publish(ctx, DeadLetterTopic(msg.Topic), msg.Key, payload)
}
