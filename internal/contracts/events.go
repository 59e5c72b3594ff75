package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type LinkCreatedPayload struct {
	LinkID      string `json:"link_id"`
	Code        string `json:"code"`
	AffiliateID string `json:"affiliate_id"`
	ProgramID   string `json:"program_id"`
	CreatedAt   string `json:"created_at"`
}

type ClickRecordedPayload struct {
	ClickID   string `json:"click_id"`
	LinkID    string `json:"link_id"`
	Country   string `json:"country,omitempty"`
	Referer   string `json:"referer,omitempty"`
	ClickedAt string `json:"clicked_at"`
}

type ConversionRecordedPayload struct {
	ConversionID      string `json:"conversion_id"`
	TransactionID     string `json:"transaction_id"`
	LinkID            string `json:"link_id"`
	AttributedClickID string `json:"attributed_click_id,omitempty"`
	Amount            string `json:"amount"`
	Commission        string `json:"commission"`
	Status            string `json:"status"`
	ConvertedAt       string `json:"converted_at"`
}

type ConversionStatusChangedPayload struct {
	ConversionID string `json:"conversion_id"`
	LinkID       string `json:"link_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	Commission   string `json:"commission"`
	ChangedBy    string `json:"changed_by"`
	ChangedAt    string `json:"changed_at"`
}

type ProgramChangedPayload struct {
	ProgramID string `json:"program_id"`
	Action    string `json:"action"`
	Active    bool   `json:"active"`
	ChangedAt string `json:"changed_at"`
}

// OrderCompletedPayload is the storefront purchase event that reports a
// conversion without going through the webhook.
type OrderCompletedPayload struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	AffiliateCode string `json:"affiliate_code"`
}
