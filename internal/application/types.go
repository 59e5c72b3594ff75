package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

const (
	RoleAdmin     = "admin"
	RoleAffiliate = "affiliate"
)

type Config struct {
	ServiceName          string
	PublicBaseURL        string
	LinkCodeMaxAttempts  int
	LinkCacheTTL         time.Duration
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	DefaultListLimit     int
	OutboxFlushBatchSize int
}

// Actor is the authenticated caller. It is resolved at the boundary and passed
// into every operation that needs an identity.
type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type RecordClickResult struct {
	LinkID              string
	RedirectURL         string
	AttributionToken    string
	CookieMaxAgeMinutes int
	Click               domain.Click
}

type RecordConversionInput struct {
	TransactionID    string
	Amount           decimal.Decimal
	AffiliateCode    string
	AttributionToken string
	TraceID          string
}

type UpdateStatusInput struct {
	ConversionID string
	Status       string
	Notes        *string
}

// ProgramPatch carries optional fields. Nil means unchanged.
type ProgramPatch struct {
	Name                  *string
	Description           *string
	CommissionModel       *string
	CommissionRate        *decimal.Decimal
	TargetURL             *string
	Active                *bool
	AttributionWindowDays *int
}

type JoinResult struct {
	Link    domain.Link
	Created bool
}

type Service struct {
	cfg Config

	programs    ports.ProgramRepository
	links       ports.LinkRepository
	clicks      ports.ClickRepository
	conversions ports.ConversionRepository
	auditLogs   ports.AuditLogRepository
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	outbox      ports.OutboxRepository
	cache       ports.Cache
	metrics     ports.Metrics

	nowFn     func() time.Time
	newCodeFn func() (string, error)
}

type Dependencies struct {
	Config Config

	Programs    ports.ProgramRepository
	Links       ports.LinkRepository
	Clicks      ports.ClickRepository
	Conversions ports.ConversionRepository
	AuditLogs   ports.AuditLogRepository
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Outbox      ports.OutboxRepository
	Cache       ports.Cache
	Metrics     ports.Metrics

	// Clock and CodeGenerator default to UTC wall time and domain.NewLinkCode.
	Clock         func() time.Time
	CodeGenerator func() (string, error)
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "affiliate-core"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://platform.com"
	}
	if cfg.LinkCodeMaxAttempts <= 0 {
		cfg.LinkCodeMaxAttempts = 5
	}
	if cfg.LinkCacheTTL <= 0 {
		cfg.LinkCacheTTL = time.Minute
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = 100
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	newCodeFn := deps.CodeGenerator
	if newCodeFn == nil {
		newCodeFn = domain.NewLinkCode
	}
	return &Service{
		cfg: cfg, programs: deps.Programs, links: deps.Links, clicks: deps.Clicks, conversions: deps.Conversions,
		auditLogs: deps.AuditLogs, idempotency: deps.Idempotency, eventDedup: deps.EventDedup, outbox: deps.Outbox,
		cache: deps.Cache, metrics: metrics, nowFn: nowFn, newCodeFn: newCodeFn,
	}
}

func (s *Service) Config() Config { return s.cfg }
