package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbus/ledgerbus/internal/logging"
)

func newRedisLog(t *testing.T) (*RedisLog, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := NewRedisLog(client, logging.Discard())
	// miniredis does not support blocking reads; a negative duration makes the
	// client omit the BLOCK option entirely.
	log.block = -1
	return log, client
}

func TestRedisLogPublishAppendsToStream(t *testing.T) {
	log, client := newRedisLog(t)
	ctx := context.Background()

	if err := log.Publish(ctx, "transaction.events", "acct-1", []byte(`{"kind":"ledger.deposit"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := client.XRange(ctx, "transaction.events", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Values["key"] != "acct-1" {
		t.Fatalf("partition key not stored: %+v", entries[0].Values)
	}
}

func TestRedisLogSubscribeDeliversAndAcks(t *testing.T) {
	log, client := newRedisLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, payload := range []string{"a", "b"} {
		if err := log.Publish(ctx, "transaction.events", "acct-2", []byte(payload)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	var got []Message
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = log.Subscribe(ctx, []string{"transaction.events"}, "recorder", func(_ context.Context, msg Message) error {
			got = append(got, msg)
			if len(got) == 2 {
				cancel()
			}
			return nil
		})
	}()
	<-done

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if string(got[0].Payload) != "a" || string(got[1].Payload) != "b" {
		t.Fatalf("out of order delivery: %q %q", got[0].Payload, got[1].Payload)
	}

	pending, err := client.XPending(context.Background(), "transaction.events", "recorder").Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected all messages acked, %d pending", pending.Count)
	}
}

func TestRedisLogFailedHandlerLeavesMessagePending(t *testing.T) {
	log, client := newRedisLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := log.Publish(ctx, "account.events", "acct-3", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = log.Subscribe(ctx, []string{"account.events"}, "notifier", func(_ context.Context, _ Message) error {
			cancel()
			return context.DeadlineExceeded
		})
	}()
	<-done

	pending, err := client.XPending(context.Background(), "account.events", "notifier").Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected 1 pending message, got %d", pending.Count)
	}
}

func TestRedisLogSubscribeSurvivesExistingGroup(t *testing.T) {
	log, client := newRedisLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := log.Publish(ctx, "account.events", "k", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.XGroupCreate(ctx, "account.events", "recorder", "0").Err(); err != nil {
		t.Fatalf("pre-create group: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = log.Subscribe(ctx, []string{"account.events"}, "recorder", func(_ context.Context, _ Message) error {
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after context cancel")
	}
}
