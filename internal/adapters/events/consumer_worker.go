package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Payload   []byte
}

// Consumer delivers messages at least once. Commit marks messages finished;
// Rewind drops the read position back to the last commit.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
	Rewind(ctx context.Context) error
}

type EnvelopeHandler interface {
	HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error
}

type ConsumerWorker struct {
	logger      *slog.Logger
	consumer    Consumer
	handler     EnvelopeHandler
	interval    time.Duration
	maxAttempts int
	backoff     time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler EnvelopeHandler, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, interval: interval,
		maxAttempts: 3, backoff: 200 * time.Millisecond,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	msgs, pollErr := w.consumer.Poll(ctx, 50)
	done, err := w.processBatch(ctx, msgs)

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if commitErr := w.consumer.Commit(commitCtx, done...); commitErr != nil {
		// Uncommitted events come back and are skipped by event dedup.
		return fmt.Errorf("commit consumed events: %w", commitErr)
	}
	if err != nil {
		if len(done) < len(msgs) {
			if rewindErr := w.consumer.Rewind(commitCtx); rewindErr != nil {
				w.logger.ErrorContext(ctx, "consumer rewind failed",
					"module", "events.consumer_worker",
					"layer", "adapter",
					"operation", "rewind",
					"outcome", "failure",
					"error", rewindErr,
				)
			}
		}
		return err
	}
	return pollErr
}

// processBatch handles messages in order and returns the prefix that is
// finished, either handled or failed for good. It stops at the first event
// that could still succeed later.
func (w *ConsumerWorker) processBatch(ctx context.Context, msgs []Message) ([]Message, error) {
	done := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
			w.logger.WarnContext(ctx, "dropping undecodable event",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "decode",
				"outcome", "failure",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			done = append(done, msg)
			continue
		}
		err := w.handle(ctx, envelope)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return done, err
		case retryable(err):
			w.logger.ErrorContext(ctx, "event left for redelivery",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle",
				"outcome", "retry_exhausted",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err,
			)
			return done, fmt.Errorf("handle event %s: %w", envelope.EventID, err)
		default:
			w.logger.WarnContext(ctx, "dropping rejected event",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle",
				"outcome", "failure",
				"topic", msg.Topic,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err,
			)
		}
		done = append(done, msg)
	}
	return done, nil
}

// handle retries transient failures. Malformed and unsupported events are not
// retried.
func (w *ConsumerWorker) handle(ctx context.Context, envelope contracts.EventEnvelope) error {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.handler.HandleCanonicalEvent(ctx, envelope)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidEnvelope),
		errors.Is(err, domain.ErrUnsupportedEventType),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
