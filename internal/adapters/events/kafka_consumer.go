package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer reads order events with explicit commits. Offsets only move
// when the worker commits a message, so a crash or a rewind redelivers
// everything after the last finished event.
type KafkaConsumer struct {
	cfg kafka.ReaderConfig

	mu     sync.Mutex
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one topic")
	}
	cfg := kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	}
	return &KafkaConsumer{cfg: cfg, reader: kafka.NewReader(cfg)}, nil
}

func (c *KafkaConsumer) current() *kafka.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// Poll fetches up to max messages without committing them. Messages fetched
// before an error are returned alongside it.
func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	reader := c.current()
	out := make([]Message, 0, max)
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return out, nil
			}
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, err
		}
		out = append(out, Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       string(msg.Key),
			Payload:   msg.Value,
		})
	}
	return out, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	marks := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		marks = append(marks, kafka.Message{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset})
	}
	return c.current().CommitMessages(ctx, marks...)
}

// Rewind reopens the group reader so fetching resumes at the committed
// offsets. The old reader's in-memory position is past the failed message.
func (c *KafkaConsumer) Rewind(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.reader.Close()
	c.reader = kafka.NewReader(c.cfg)
	if err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.current().Close()
}

type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}

func (n *NoopConsumer) Commit(_ context.Context, _ ...Message) error { return nil }

func (n *NoopConsumer) Rewind(_ context.Context) error { return nil }
