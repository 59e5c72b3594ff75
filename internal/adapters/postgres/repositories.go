package postgres

import (
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Programs    ports.ProgramRepository
	Links       ports.LinkRepository
	Clicks      ports.ClickRepository
	Conversions ports.ConversionRepository
	AuditLogs   ports.AuditLogRepository
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Programs:    &programRepository{db: db},
		Links:       &linkRepository{db: db},
		Clicks:      &clickRepository{db: db},
		Conversions: &conversionRepository{db: db},
		AuditLogs:   &auditLogRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
