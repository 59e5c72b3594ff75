package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/affiliate-core/internal/domain"
)

func (s *Service) appendAudit(ctx context.Context, entityType, entityID, action, actorID, reason string, meta map[string]string) error {
	if s.auditLogs == nil {
		return nil
	}
	return s.auditLogs.Append(ctx, domain.AuditLog{
		AuditLogID: uuid.NewString(), EntityType: entityType, EntityID: entityID, Action: action,
		ActorID: actorID, Reason: reason, Metadata: meta, CreatedAt: s.nowFn(),
	})
}

func (s *Service) AuditTrail(ctx context.Context, actor Actor, entityType, entityID string) ([]domain.AuditLog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.auditLogs == nil {
		return nil, nil
	}
	return s.auditLogs.ListByEntity(ctx, entityType, entityID)
}

func requireAdmin(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	if !isAdmin(actor) {
		return domain.ErrForbidden
	}
	return nil
}

func isAdmin(actor Actor) bool { return strings.ToLower(strings.TrimSpace(actor.Role)) == RoleAdmin }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func hashJSON(v any) string {
	raw, _ := json.Marshal(v)
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:])
}

func (s *Service) getIdempotent(ctx context.Context, key, expectedHash string) ([]byte, bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return nil, false, err
	}
	if rec.RequestHash != expectedHash {
		return nil, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return nil, false, nil
	}
	return rec.ResponseBody, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
}

// releaseIdempotency frees a reservation whose write failed so the caller can
// retry with the same key.
func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return
	}
	_ = s.idempotency.Release(ctx, key)
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, v any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	raw, _ := json.Marshal(v)
	return s.idempotency.Complete(ctx, key, code, raw, s.nowFn())
}
