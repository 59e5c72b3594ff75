package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

// HandleCanonicalEvent processes one inbound envelope. Order completions feed
// RecordConversion; duplicates and dead links are acknowledged because a
// redelivery can never succeed.
func (s *Service) HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	if !domain.IsCanonicalInputEvent(envelope.EventType) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventType, envelope.EventType)
	}
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, s.nowFn())
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
	}

	var payload contracts.OrderCompletedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil {
		return fmt.Errorf("%w: amount %q", domain.ErrInvalidInput, payload.Amount)
	}
	_, err = s.RecordConversion(ctx, RecordConversionInput{
		TransactionID: payload.TransactionID,
		Amount:        amount,
		AffiliateCode: payload.AffiliateCode,
		TraceID:       envelope.TraceID,
	})
	if err != nil && !isTerminalConversionError(err) {
		return err
	}
	if s.eventDedup != nil {
		return s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, s.nowFn().Add(s.cfg.EventDedupTTL))
	}
	return nil
}

func isTerminalConversionError(err error) bool {
	return errors.Is(err, domain.ErrDuplicateConversion) ||
		errors.Is(err, domain.ErrInvalidLink) ||
		errors.Is(err, domain.ErrNoAttributionCode)
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, partitionKey string) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEventType
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	now := s.nowFn()
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:          env.EventID,
		EventType:        env.EventType,
		EventClass:       env.EventClass,
		PartitionKey:     env.PartitionKey,
		PartitionKeyPath: env.PartitionKeyPath,
		Payload:          raw,
		OccurredAt:       now,
	})
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}
