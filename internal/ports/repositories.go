package ports

import (
	"context"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
)

type ProgramFilter struct {
	Active *bool
}

type ProgramRepository interface {
	Create(ctx context.Context, row domain.Program) error
	GetByID(ctx context.Context, programID string) (domain.Program, error)
	List(ctx context.Context, filter ProgramFilter) ([]domain.Program, error)
	Update(ctx context.Context, row domain.Program) error
	Delete(ctx context.Context, programID string) error
	Count(ctx context.Context) (int, error)
}

type LinkFilter struct {
	AffiliateID string
	ProgramID   string
	Active      *bool
}

// LinkRepository.Create returns domain.ErrLinkExists or domain.ErrLinkCodeTaken
// when a unique constraint rejects the row. Callers that cannot tell the two
// apart re-read by (affiliate, program).
type LinkRepository interface {
	Create(ctx context.Context, row domain.Link) error
	GetByID(ctx context.Context, linkID string) (domain.Link, error)
	GetByCode(ctx context.Context, code string) (domain.Link, error)
	GetByAffiliateAndProgram(ctx context.Context, affiliateID, programID string) (domain.Link, error)
	List(ctx context.Context, filter LinkFilter) ([]domain.Link, error)
	SetActive(ctx context.Context, linkID string, active bool, at time.Time) error
	CountByProgram(ctx context.Context, programID string) (total int, active int, err error)
	Count(ctx context.Context) (int, error)
}

type ClickRepository interface {
	// Append stores the click and returns it with its insertion sequence.
	Append(ctx context.Context, row domain.Click) (domain.Click, error)
	ListInWindow(ctx context.Context, linkID string, from, to time.Time) ([]domain.Click, error)
	CountByLinks(ctx context.Context, linkIDs []string) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}

type ConversionFilter struct {
	LinkID string
	Status domain.ConversionStatus
	Limit  int
}

// ConversionRepository.Create returns domain.ErrDuplicateConversion when the
// transaction_id unique constraint rejects the row.
type ConversionRepository interface {
	Create(ctx context.Context, row domain.Conversion) error
	GetByID(ctx context.Context, conversionID string) (domain.Conversion, error)
	GetByTransactionID(ctx context.Context, transactionID string) (domain.Conversion, error)
	List(ctx context.Context, filter ConversionFilter) ([]domain.Conversion, error)
	// ApplyStatusChange returns domain.ErrConflict when the stored status no
	// longer matches change.From.
	ApplyStatusChange(ctx context.Context, change domain.StatusChange) (domain.Conversion, error)
	Delete(ctx context.Context, conversionID string) error
	// SumCommissionByStatus groups by (link, status). An empty linkIDs covers
	// every link.
	SumCommissionByStatus(ctx context.Context, linkIDs []string) ([]domain.StatusTotal, error)
}

type AuditLogRepository interface {
	Append(ctx context.Context, row domain.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	// Release drops a reservation that was never completed. Completed keys stay.
	Release(ctx context.Context, key string) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxEvent struct {
	EventID          string
	EventType        string
	EventClass       string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
}

type OutboxRecord struct {
	OutboxID     string
	EventType    string
	EventClass   string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	LastError    *string
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID string, errMsg string, at time.Time) error
}
