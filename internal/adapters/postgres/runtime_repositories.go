package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

func (r *auditLogRepository) Append(ctx context.Context, row domain.AuditLog) error {
	meta, err := json.Marshal(row.Metadata)
	if err != nil {
		return err
	}
	if row.Metadata == nil {
		meta = []byte("{}")
	}
	rec := auditLogModel{
		AuditLogID: row.AuditLogID, EntityType: row.EntityType, EntityID: row.EntityID, Action: row.Action,
		ActorID: row.ActorID, Reason: row.Reason, Metadata: string(meta), CreatedAt: row.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	var rows []auditLogModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAuditLog(row))
	}
	return out, nil
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ? AND expires_at > ?", key, now.UTC()).Take(&rec).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := &ports.IdempotencyRecord{
		Key: rec.IdempotencyKey, RequestHash: rec.RequestHash, Status: rec.Status,
		ResponseCode: rec.ResponseCode, ExpiresAt: rec.ExpiresAt.UTC(),
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return out, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An expired reservation may be reclaimed.
		if err := tx.Where("idempotency_key = ? AND expires_at <= ?", key, now).Delete(&idempotencyModel{}).Error; err != nil {
			return err
		}
		rec := idempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Status:         "reserved",
			ExpiresAt:      expiresAt.UTC(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrIdempotencyConflict
			}
			return err
		}
		return nil
	})
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	payload := string(responseBody)
	return r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        "completed",
			"response_code": responseCode,
			"response_body": payload,
			"updated_at":    at.UTC(),
		}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, "reserved").
		Delete(&idempotencyModel{}).Error
}

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&eventDedupModel{}).
		Where("event_id = ? AND expires_at > ?", eventID, now.UTC()).
		Count(&count).Error
	return count > 0, err
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	rec := eventDedupModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt.UTC(),
	}
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Assign(map[string]any{
			"event_type":   eventType,
			"processed_at": rec.ProcessedAt,
			"expires_at":   rec.ExpiresAt,
		}).
		FirstOrCreate(&rec).Error
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := outboxModel{
		OutboxID:         event.EventID,
		EventType:        event.EventType,
		EventClass:       event.EventClass,
		PartitionKey:     event.PartitionKey,
		PartitionKeyPath: event.PartitionKeyPath,
		Payload:          string(event.Payload),
		CreatedAt:        event.OccurredAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var rows []outboxModel
	if err := r.db.WithContext(ctx).Where("published_at IS NULL").Order("created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.OutboxRecord{
			OutboxID: row.OutboxID, EventType: row.EventType, EventClass: row.EventClass, PartitionKey: row.PartitionKey,
			Payload: []byte(row.Payload), RetryCount: row.RetryCount, LastError: row.LastError,
			CreatedAt: row.CreatedAt.UTC(), PublishedAt: utcPtr(row.PublishedAt),
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", outboxID).Update("published_at", at.UTC()).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID string, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("outbox_id = ?", outboxID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at.UTC(),
	}).Error
}

var (
	_ ports.AuditLogRepository    = (*auditLogRepository)(nil)
	_ ports.IdempotencyRepository = (*idempotencyRepository)(nil)
	_ ports.EventDedupRepository  = (*eventDedupRepository)(nil)
	_ ports.OutboxRepository      = (*outboxRepository)(nil)
)
