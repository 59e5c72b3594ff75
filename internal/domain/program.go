package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionModel string

const (
	CommissionPercentage CommissionModel = "percentage"
	CommissionFixed      CommissionModel = "fixed"
)

const (
	DefaultAttributionWindowDays = 30
	MaxAttributionWindowDays     = 365
	// MaxCommissionRateScale is the number of decimal places stored for a rate.
	MaxCommissionRateScale = 4
	minutesPerDay          = 1440
)

func ParseCommissionModel(raw string) (CommissionModel, error) {
	switch m := CommissionModel(strings.ToLower(strings.TrimSpace(raw))); m {
	case CommissionPercentage, CommissionFixed:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown commission model %q", ErrInvalidInput, raw)
	}
}

// Program is an affiliate offer. Only the commission fields, the target URL,
// the attribution window and the active flag are read by attribution.
type Program struct {
	ProgramID             string          `json:"program_id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	CommissionModel       CommissionModel `json:"commission_model"`
	CommissionRate        decimal.Decimal `json:"commission_rate"`
	TargetURL             string          `json:"target_url"`
	Active                bool            `json:"active"`
	AttributionWindowDays int             `json:"attribution_window_days"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Validate checks configuration bounds. Rate bounds live here rather than in
// ComputeCommission.
func (p Program) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := ParseCommissionModel(string(p.CommissionModel)); err != nil {
		return err
	}
	if p.CommissionRate.IsNegative() {
		return fmt.Errorf("%w: commission_rate must be >= 0", ErrInvalidInput)
	}
	if !p.CommissionRate.Equal(p.CommissionRate.Truncate(MaxCommissionRateScale)) {
		return fmt.Errorf("%w: commission_rate allows at most %d decimal places", ErrInvalidInput, MaxCommissionRateScale)
	}
	if p.CommissionModel == CommissionPercentage && p.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage commission_rate must be <= 100", ErrInvalidInput)
	}
	if p.AttributionWindowDays < 1 || p.AttributionWindowDays > MaxAttributionWindowDays {
		return fmt.Errorf("%w: attribution_window_days must be between 1 and %d", ErrInvalidInput, MaxAttributionWindowDays)
	}
	u, err := url.Parse(strings.TrimSpace(p.TargetURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: target_url must be an absolute url", ErrInvalidInput)
	}
	return nil
}

func (p Program) AttributionWindow() time.Duration {
	return time.Duration(p.AttributionWindowDays) * 24 * time.Hour
}

// CookieMaxAgeMinutes is the lifetime of the attribution token.
func (p Program) CookieMaxAgeMinutes() int {
	return p.AttributionWindowDays * minutesPerDay
}
