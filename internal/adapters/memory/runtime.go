package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	if !row.ExpiresAt.IsZero() && now.After(row.ExpiresAt) {
		delete(r.rows, key)
		return nil, nil
	}
	out := row
	return &out, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; ok {
		return domain.ErrIdempotencyConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "reserved", ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.Status = "completed"
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && row.Status == "reserved" {
		delete(r.rows, key)
	}
	return nil
}

type EventDedupRepository struct {
	mu   sync.Mutex
	rows map[string]time.Time
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.rows[eventID]
	return ok && now.Before(exp), nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, _ string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[eventID] = expiresAt
	return nil
}

type OutboxRepository struct {
	mu   sync.Mutex
	rows map[string]ports.OutboxRecord
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[event.EventID]; ok {
		return domain.ErrConflict
	}
	r.rows[event.EventID] = ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		EventClass:   event.EventClass,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		CreatedAt:    event.OccurredAt,
	}
	return nil
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0)
	for _, row := range r.rows {
		if row.PublishedAt == nil {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.PublishedAt = &at
	r.rows[outboxID] = row
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID string, errMsg string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = &errMsg
	r.rows[outboxID] = row
	return nil
}

// Pending reports how many outbox rows are still unpublished.
func (r *OutboxRepository) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.PublishedAt == nil {
			n++
		}
	}
	return n
}

// Cache is a process-local ports.Cache with TTL expiry.
type Cache struct {
	mu    sync.Mutex
	rows  map[string]cacheEntry
	nowFn func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

func NewCache() *Cache {
	return &Cache{rows: map[string]cacheEntry{}, nowFn: time.Now}
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.rows[key]
	if !ok {
		return "", ports.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.nowFn().After(e.expiresAt) {
		delete(c.rows, key)
		return "", ports.ErrCacheMiss
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.nowFn().Add(ttl)
	}
	c.rows[key] = e
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.rows, k)
	}
	return nil
}

var _ ports.Cache = (*Cache)(nil)
