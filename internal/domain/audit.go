package domain

import "time"

type AuditLog struct {
	AuditLogID string            `json:"audit_log_id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Action     string            `json:"action"`
	ActorID    string            `json:"actor_id"`
	Reason     string            `json:"reason"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

const (
	AuditEntityProgram    = "program"
	AuditEntityLink       = "link"
	AuditEntityConversion = "conversion"
)
