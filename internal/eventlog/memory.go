package eventlog

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryLog is an in-process Log for unit tests and local development. Each
// consumer group tracks its own offset per topic, so every group sees every
// message while members of one group share the work.
type MemoryLog struct {
	mu      sync.Mutex
	cond    *sync.Cond
	topics  map[string][]Message
	offsets map[string]int
	seq     int
}

// NewMemory constructs an empty in-memory event log.
func NewMemory() *MemoryLog {
	l := &MemoryLog{
		topics:  make(map[string][]Message),
		offsets: make(map[string]int),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Publish appends the payload to the topic.
func (l *MemoryLog) Publish(_ context.Context, topic, key string, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.topics[topic] = append(l.topics[topic], Message{
		ID:      strconv.Itoa(l.seq),
		Topic:   topic,
		Key:     key,
		Payload: payload,
	})
	l.cond.Broadcast()
	return nil
}

// Subscribe consumes the topics on behalf of group until ctx is done.
// Messages published before the subscription are delivered too.
func (l *MemoryLog) Subscribe(ctx context.Context, topics []string, group string, handler Handler) error {
	stop := context.AfterFunc(ctx, l.cond.Broadcast)
	defer stop()

	for {
		msg, ok := l.next(ctx, topics, group)
		if !ok {
			return nil
		}
		if err := handler(ctx, msg); err != nil {
			// Unacknowledged: rewind the group offset so the message is
			// delivered again.
			l.mu.Lock()
			cursor := group + "|" + msg.Topic
			if l.offsets[cursor] > 0 {
				l.offsets[cursor]--
			}
			l.mu.Unlock()
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Messages returns a snapshot of everything published to the topic.
func (l *MemoryLog) Messages(topic string) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.topics[topic]))
	copy(out, l.topics[topic])
	return out
}

func (l *MemoryLog) next(ctx context.Context, topics []string, group string) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return Message{}, false
		}
		for _, topic := range topics {
			cursor := group + "|" + topic
			if l.offsets[cursor] < len(l.topics[topic]) {
				msg := l.topics[topic][l.offsets[cursor]]
				l.offsets[cursor]++
				return msg, true
			}
		}
		l.cond.Wait()
	}
}
