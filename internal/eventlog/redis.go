package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLog implements Log on Redis Streams. Every topic is one stream, so
// ordering holds per topic; consumer groups provide at-least-once delivery
// with explicit acknowledgment via XACK.
type RedisLog struct {
	client   *redis.Client
	logger   *slog.Logger
	consumer string
	block    time.Duration
}

// NewRedisLog builds a stream-backed event log on an established client.
func NewRedisLog(client *redis.Client, logger *slog.Logger) *RedisLog {
	return &RedisLog{
		client:   client,
		logger:   logger,
		consumer: "consumer-" + uuid.NewString()[:8],
		block:    5 * time.Second,
	}
}

// Publish appends the payload to the topic's stream.
func (l *RedisLog) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{"key": key, "payload": payload},
	}).Err()
}

// Subscribe reads the topics on behalf of group until ctx is done. Handled
// messages are acknowledged; failed ones stay in the pending entries list.
func (l *RedisLog) Subscribe(ctx context.Context, topics []string, group string, handler Handler) error {
	for _, topic := range topics {
		err := l.client.XGroupCreateMkStream(ctx, topic, group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return err
		}
	}

	// XREADGROUP expects stream names followed by one ">" per stream.
	streams := make([]string, 0, len(topics)*2)
	streams = append(streams, topics...)
	for range topics {
		streams = append(streams, ">")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: l.consumer,
			Streams:  streams,
			Count:    16,
			Block:    l.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Error("event log read failed", "group", group, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				msg := Message{
					ID:    entry.ID,
					Topic: stream.Stream,
					Key:   stringValue(entry.Values["key"]),
				}
				msg.Payload = []byte(stringValue(entry.Values["payload"]))

				if err := handler(ctx, msg); err != nil {
					l.logger.Error("message left pending", "topic", msg.Topic, "id", msg.ID, "error", err)
					continue
				}
				if err := l.client.XAck(ctx, stream.Stream, group, entry.ID).Err(); err != nil {
					l.logger.Error("ack failed", "topic", msg.Topic, "id", msg.ID, "error", err)
				}
			}
		}
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
