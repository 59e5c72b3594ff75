package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "pending"
	ConversionApproved ConversionStatus = "approved"
	ConversionPaid     ConversionStatus = "paid"
	ConversionRejected ConversionStatus = "rejected"
)

var allowedStatusTransitions = map[ConversionStatus]map[ConversionStatus]bool{
	ConversionPending:  {ConversionApproved: true, ConversionRejected: true},
	ConversionApproved: {ConversionPaid: true, ConversionRejected: true},
	ConversionPaid:     {},
	ConversionRejected: {},
}

func ParseConversionStatus(raw string) (ConversionStatus, error) {
	s := ConversionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := allowedStatusTransitions[s]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

func (s ConversionStatus) Terminal() bool {
	return s == ConversionPaid || s == ConversionRejected
}

// ValidateStatusTransition enforces pending -> approved -> paid with rejection
// allowed from pending or approved. paid and rejected are terminal.
func ValidateStatusTransition(from, to ConversionStatus) error {
	next, ok := allowedStatusTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown current status %q", ErrInvalidTransition, from)
	}
	if !next[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

type Conversion struct {
	ConversionID      string           `json:"conversion_id"`
	TransactionID     string           `json:"transaction_id"`
	LinkID            string           `json:"link_id"`
	AttributedClickID *string          `json:"attributed_click_id"`
	Amount            decimal.Decimal  `json:"amount"`
	Commission        decimal.Decimal  `json:"commission"`
	Status            ConversionStatus `json:"status"`
	Notes             string           `json:"notes,omitempty"`
	ConvertedAt       time.Time        `json:"converted_at"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// StatusChange is a conditional update: it applies only while the stored
// status still equals From.
type StatusChange struct {
	ConversionID string
	From         ConversionStatus
	To           ConversionStatus
	Notes        *string
	At           time.Time
}
