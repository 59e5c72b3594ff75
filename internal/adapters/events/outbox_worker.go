package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/affiliate-core/internal/ports"
)

type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	nowFn     func() time.Time
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger: logger, outbox: outbox, publisher: publisher, interval: interval, batchSize: batchSize,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
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

// ProcessOnce publishes one batch and returns how many rows were published.
// Rows that fail stay unpublished with their retry count bumped.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, rec := range records {
		now := w.nowFn()
		if err := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); err != nil {
			w.logger.WarnContext(ctx, "outbox publish failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", rec.EventType,
				"outbox_id", rec.OutboxID,
				"retry_count", rec.RetryCount,
				"error", err,
			)
			_ = w.outbox.MarkFailed(ctx, rec.OutboxID, err.Error(), now)
			continue
		}
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, now); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}
