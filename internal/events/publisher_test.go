package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ledgerbus/ledgerbus/internal/eventlog"
	"github.com/ledgerbus/ledgerbus/internal/logging"
)

type flakyLog struct {
	failures int
	appended []appended
}

type appended struct {
	topic   string
	key     string
	payload []byte
}

func (l *flakyLog) Publish(_ context.Context, topic, key string, payload []byte) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("log unavailable")
	}
	l.appended = append(l.appended, appended{topic: topic, key: key, payload: payload})
	return nil
}

func (l *flakyLog) Subscribe(context.Context, []string, string, eventlog.Handler) error {
	return nil
}

func TestPublisherStampsEnvelopeDefaults(t *testing.T) {
	log := &flakyLog{}
	pub := NewLogPublisher(log, logging.Discard())

	ctx := WithCorrelation(context.Background(), "req-42")
	pub.Publish(ctx, Event{Kind: KindDeposit, AccountNumber: "1000000000000001", Amount: 500})

	if len(log.appended) != 1 {
		t.Fatalf("expected 1 append, got %d", len(log.appended))
	}
	got := log.appended[0]
	if got.topic != TopicTransactions {
		t.Fatalf("deposit routed to %s", got.topic)
	}
	if got.key != "1000000000000001" {
		t.Fatalf("partition key %q", got.key)
	}

	var event Event
	if err := json.Unmarshal(got.payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version %d", event.SchemaVersion)
	}
	if event.EventID == "" {
		t.Fatal("event id not stamped")
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("occurred_at not stamped")
	}
	if event.CorrelationID != "req-42" {
		t.Fatalf("correlation id %q", event.CorrelationID)
	}
}

func TestPublisherRoutesAccountEvents(t *testing.T) {
	log := &flakyLog{}
	pub := NewLogPublisher(log, logging.Discard())

	pub.Publish(context.Background(), Event{Kind: KindAccountCreated, AccountNumber: "1000000000000002"})

	if len(log.appended) != 1 || log.appended[0].topic != TopicAccounts {
		t.Fatalf("account event routed to %+v", log.appended)
	}
}

func TestPublisherRetriesFailedAppends(t *testing.T) {
	log := &flakyLog{failures: 2}
	pub := NewLogPublisher(log, logging.Discard())
	ctx := context.Background()

	pub.Publish(ctx, Event{Kind: KindWithdrawal, AccountNumber: "1000000000000003", Amount: 100})
	if len(log.appended) != 0 {
		t.Fatal("append should have failed")
	}

	// First drain hits the second injected failure and requeues.
	pub.drain(ctx)
	if len(log.appended) != 0 {
		t.Fatal("expected event still pending after failed drain")
	}

	pub.drain(ctx)
	if len(log.appended) != 1 {
		t.Fatalf("expected delivery after retry, got %d", len(log.appended))
	}
	if len(pub.retries) != 0 {
		t.Fatalf("retry queue not emptied: %d", len(pub.retries))
	}
}

func TestPublisherDropsAfterRetryCap(t *testing.T) {
	log := &flakyLog{failures: 1 << 30}
	pub := NewLogPublisher(log, logging.Discard())
	pub.maxRetries = 3
	ctx := context.Background()

	pub.Publish(ctx, Event{Kind: KindTransfer, AccountNumber: "1000000000000004"})
	for i := 0; i < 5; i++ {
		pub.drain(ctx)
	}
	if len(pub.retries) != 0 {
		t.Fatalf("event not dropped after cap: %d pending", len(pub.retries))
	}
}
