package contracts

import "github.com/shopspring/decimal"

type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type TrackClickResponse struct {
	LinkID               string `json:"link_id"`
	RedirectURL          string `json:"redirect_url"`
	AttributionToken     string `json:"attribution_token"`
	CookieMaxAgeMinutes  int    `json:"cookie_max_age_minutes"`
	AttributionCookieKey string `json:"attribution_cookie"`
}

type RecordConversionRequest struct {
	TransactionID string           `json:"transaction_id"`
	Amount        *decimal.Decimal `json:"amount"`
	AffiliateCode string           `json:"affiliate_code,omitempty"`
}

type ConversionResponse struct {
	ConversionID      string  `json:"conversion_id"`
	TransactionID     string  `json:"transaction_id"`
	LinkID            string  `json:"link_id"`
	AttributedClickID *string `json:"attributed_click_id"`
	Amount            string  `json:"amount"`
	Commission        string  `json:"commission"`
	Status            string  `json:"status"`
	Notes             string  `json:"notes,omitempty"`
	ConvertedAt       string  `json:"converted_at"`
	ApprovedAt        *string `json:"approved_at,omitempty"`
	PaidAt            *string `json:"paid_at,omitempty"`
}

type ConversionListResponse struct {
	Items []ConversionResponse `json:"items"`
}

type UpdateConversionStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type LinkResponse struct {
	LinkID      string `json:"link_id"`
	Code        string `json:"code"`
	AffiliateID string `json:"affiliate_id"`
	ProgramID   string `json:"program_id"`
	Active      bool   `json:"active"`
	RedirectURL string `json:"redirect_url"`
	CreatedAt   string `json:"created_at"`
}

type LinkListResponse struct {
	Items []LinkResponse `json:"items"`
}

type UpdateLinkRequest struct {
	Active *bool  `json:"active"`
	Reason string `json:"reason,omitempty"`
}

type ProgramRequest struct {
	Name                  *string          `json:"name,omitempty"`
	Description           *string          `json:"description,omitempty"`
	CommissionModel       *string          `json:"commission_model,omitempty"`
	CommissionRate        *decimal.Decimal `json:"commission_rate,omitempty"`
	TargetURL             *string          `json:"target_url,omitempty"`
	Active                *bool            `json:"active,omitempty"`
	AttributionWindowDays *int             `json:"attribution_window_days,omitempty"`
}

type ProgramResponse struct {
	ProgramID             string `json:"program_id"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	CommissionModel       string `json:"commission_model"`
	CommissionRate        string `json:"commission_rate"`
	TargetURL             string `json:"target_url"`
	Active                bool   `json:"active"`
	AttributionWindowDays int    `json:"attribution_window_days"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

type ProgramListResponse struct {
	Items []ProgramResponse `json:"items"`
}

type CommissionTotals struct {
	Conversions       int    `json:"conversions"`
	TotalCommission   string `json:"total_commission"`
	PendingCommission string `json:"pending_commission"`
	PaidCommission    string `json:"paid_commission"`
}

type LinkStatsResponse struct {
	LinkID    string `json:"link_id"`
	Code      string `json:"code"`
	ProgramID string `json:"program_id"`
	Active    bool   `json:"active"`
	Clicks    int    `json:"clicks"`
	CommissionTotals
}

type DashboardResponse struct {
	AffiliateID string              `json:"affiliate_id"`
	Clicks      int                 `json:"clicks"`
	Links       []LinkStatsResponse `json:"links"`
	Totals      CommissionTotals    `json:"totals"`
}

type ProgramSummaryResponse struct {
	ProgramID       string `json:"program_id"`
	LinkCount       int    `json:"link_count"`
	ActiveLinkCount int    `json:"active_link_count"`
}

type PlatformStatsResponse struct {
	Programs int              `json:"programs"`
	Links    int              `json:"links"`
	Clicks   int              `json:"clicks"`
	Totals   CommissionTotals `json:"totals"`
}

type AuditLogResponse struct {
	AuditLogID string            `json:"audit_log_id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Action     string            `json:"action"`
	ActorID    string            `json:"actor_id"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

type AuditLogListResponse struct {
	Items []AuditLogResponse `json:"items"`
}

type DeleteRequest struct {
	Reason string `json:"reason,omitempty"`
}
