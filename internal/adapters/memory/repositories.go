package memory

import (
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

// Repositories is a process-local store that enforces the same uniqueness
// rules as the database schema. It backs tests and the "memory" driver.
type Repositories struct {
	Programs    *ProgramRepository
	Links       *LinkRepository
	Clicks      *ClickRepository
	Conversions *ConversionRepository
	AuditLogs   *AuditLogRepository
	Idempotency *IdempotencyRepository
	EventDedup  *EventDedupRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Programs:    &ProgramRepository{byID: map[string]domain.Program{}},
		Links:       &LinkRepository{byID: map[string]domain.Link{}, byCode: map[string]string{}, byPair: map[string]string{}},
		Clicks:      &ClickRepository{byLink: map[string][]domain.Click{}},
		Conversions: &ConversionRepository{byID: map[string]domain.Conversion{}, byTxn: map[string]string{}},
		AuditLogs:   &AuditLogRepository{},
		Idempotency: &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		EventDedup:  &EventDedupRepository{rows: map[string]time.Time{}},
		Outbox:      &OutboxRepository{rows: map[string]ports.OutboxRecord{}},
	}
}

var (
	_ ports.ProgramRepository     = (*ProgramRepository)(nil)
	_ ports.LinkRepository        = (*LinkRepository)(nil)
	_ ports.ClickRepository       = (*ClickRepository)(nil)
	_ ports.ConversionRepository  = (*ConversionRepository)(nil)
	_ ports.AuditLogRepository    = (*AuditLogRepository)(nil)
	_ ports.IdempotencyRepository = (*IdempotencyRepository)(nil)
	_ ports.EventDedupRepository  = (*EventDedupRepository)(nil)
	_ ports.OutboxRepository      = (*OutboxRepository)(nil)
)
