package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type programModel struct {
	ProgramID             string          `gorm:"column:program_id;primaryKey"`
	Name                  string          `gorm:"column:name;not null"`
	Description           string          `gorm:"column:description"`
	CommissionModel       string          `gorm:"column:commission_model;not null"`
	CommissionRate        decimal.Decimal `gorm:"column:commission_rate;type:numeric(12,4);not null"`
	TargetURL             string          `gorm:"column:target_url;not null"`
	Active                bool            `gorm:"column:active"`
	AttributionWindowDays int             `gorm:"column:attribution_window_days"`
	CreatedAt             time.Time       `gorm:"column:created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at"`
}

func (programModel) TableName() string { return "affiliate_programs" }

type linkModel struct {
	LinkID      string    `gorm:"column:link_id;primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:ux_affiliate_links_code"`
	AffiliateID string    `gorm:"column:affiliate_id;not null;uniqueIndex:ux_affiliate_links_affiliate_program,priority:1"`
	ProgramID   string    `gorm:"column:program_id;not null;uniqueIndex:ux_affiliate_links_affiliate_program,priority:2;index:idx_affiliate_links_program"`
	Active      bool      `gorm:"column:active"`
	RedirectURL string    `gorm:"column:redirect_url"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (linkModel) TableName() string { return "affiliate_links" }

type clickModel struct {
	Seq       int64     `gorm:"column:seq;primaryKey;autoIncrement"`
	ClickID   string    `gorm:"column:click_id;not null;uniqueIndex:ux_affiliate_clicks_click_id"`
	LinkID    string    `gorm:"column:link_id;not null;index:idx_affiliate_clicks_link_time,priority:1"`
	ClickedAt time.Time `gorm:"column:clicked_at;not null;index:idx_affiliate_clicks_link_time,priority:2"`
	IPAddress string    `gorm:"column:ip_address"`
	UserAgent string    `gorm:"column:user_agent"`
	Referer   string    `gorm:"column:referer"`
	Country   *string   `gorm:"column:country"`
}

func (clickModel) TableName() string { return "affiliate_clicks" }

type conversionModel struct {
	ConversionID      string          `gorm:"column:conversion_id;primaryKey"`
	TransactionID     string          `gorm:"column:transaction_id;not null;uniqueIndex:ux_affiliate_conversions_transaction"`
	LinkID            string          `gorm:"column:link_id;not null;index:idx_affiliate_conversions_link_status,priority:1"`
	AttributedClickID *string         `gorm:"column:attributed_click_id"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Commission        decimal.Decimal `gorm:"column:commission;type:numeric(18,2);not null"`
	Status            string          `gorm:"column:status;not null;index:idx_affiliate_conversions_link_status,priority:2"`
	Notes             string          `gorm:"column:notes"`
	ConvertedAt       time.Time       `gorm:"column:converted_at;not null"`
	ApprovedAt        *time.Time      `gorm:"column:approved_at"`
	PaidAt            *time.Time      `gorm:"column:paid_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
	// Deleted rows keep their transaction_id reserved in the unique index.
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index:idx_affiliate_conversions_deleted_at"`
}

func (conversionModel) TableName() string { return "affiliate_conversions" }

type statusTotalRow struct {
	LinkID      string          `gorm:"column:link_id"`
	Status      string          `gorm:"column:status"`
	Conversions int             `gorm:"column:conversions"`
	Commission  decimal.Decimal `gorm:"column:commission"`
}

type auditLogModel struct {
	AuditLogID string    `gorm:"column:audit_log_id;primaryKey"`
	EntityType string    `gorm:"column:entity_type;index:idx_affiliate_audit_logs_entity,priority:1"`
	EntityID   string    `gorm:"column:entity_id;index:idx_affiliate_audit_logs_entity,priority:2"`
	Action     string    `gorm:"column:action"`
	ActorID    string    `gorm:"column:actor_id"`
	Reason     string    `gorm:"column:reason"`
	Metadata   string    `gorm:"column:metadata"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (auditLogModel) TableName() string { return "affiliate_audit_logs" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "affiliate_idempotency" }

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "affiliate_event_dedup" }

type outboxModel struct {
	OutboxID         string     `gorm:"column:outbox_id;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	EventClass       string     `gorm:"column:event_class"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "affiliate_outbox" }

// Models lists every table model, in dependency order, for schema tooling
// that does not read the SQL migrations.
func Models() []any {
	return []any{
		&programModel{}, &linkModel{}, &clickModel{}, &conversionModel{},
		&auditLogModel{}, &idempotencyModel{}, &eventDedupModel{}, &outboxModel{},
	}
}
