package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerbus/ledgerbus/internal/eventlog"
)

// Publisher appends committed mutations to the event log. Publishing happens
// strictly after the local commit and never fails the originating operation.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type pending struct {
	topic    string
	key      string
	payload  []byte
	attempts int
}

// LogPublisher publishes to an eventlog.Log. Failed publishes are queued and
// retried by Run in the background; delivery is at-least-once, so an event
// may go out twice but is never rolled back.
type LogPublisher struct {
	log        eventlog.Log
	logger     *slog.Logger
	retries    chan pending
	retryEvery time.Duration
	maxRetries int
}

// NewLogPublisher builds a publisher over the given event log.
func NewLogPublisher(log eventlog.Log, logger *slog.Logger) *LogPublisher {
	return &LogPublisher{
		log:        log,
		logger:     logger,
		retries:    make(chan pending, 256),
		retryEvery: 5 * time.Second,
		maxRetries: 10,
	}
}

// Publish stamps missing envelope fields and appends the event to its topic.
func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	if event.SchemaVersion == 0 {
		event.SchemaVersion = SchemaVersion
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = CorrelationFrom(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("event encoding failed", "kind", event.Kind, "error", err)
		return
	}

	topic := TopicFor(event.Kind)
	if err := p.log.Publish(ctx, topic, event.PartitionKey(), payload); err != nil {
		p.logger.Warn("publish failed, queued for retry",
			"topic", topic, "event_id", event.EventID, "error", err)
		p.enqueue(pending{topic: topic, key: event.PartitionKey(), payload: payload})
	}
}

// Run drains the retry queue until ctx is done.
func (p *LogPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.retryEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *LogPublisher) drain(ctx context.Context) {
	for i := len(p.retries); i > 0; i-- {
		select {
		case item := <-p.retries:
			if err := p.log.Publish(ctx, item.topic, item.key, item.payload); err != nil {
				item.attempts++
				if item.attempts >= p.maxRetries {
					p.logger.Error("event dropped after retries", "topic", item.topic, "error", err)
					continue
				}
				p.enqueue(item)
			}
		default:
			return
		}
	}
}

func (p *LogPublisher) enqueue(item pending) {
	select {
	case p.retries <- item:
	default:
		p.logger.Error("retry queue full, event dropped", "topic", item.topic)
	}
}
