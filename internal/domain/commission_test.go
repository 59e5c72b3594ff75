package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeCommission(t *testing.T) {
	tests := []struct {
		name   string
		model  CommissionModel
		rate   string
		amount string
		want   string
	}{
		{name: "percentage", model: CommissionPercentage, rate: "10", amount: "250.00", want: "25.00"},
		{name: "percentage rounds half up", model: CommissionPercentage, rate: "15", amount: "33.30", want: "5.00"},
		{name: "percentage half cent", model: CommissionPercentage, rate: "5", amount: "0.10", want: "0.01"},
		{name: "fractional rate", model: CommissionPercentage, rate: "12.5", amount: "19.99", want: "2.50"},
		{name: "fixed ignores amount", model: CommissionFixed, rate: "7.50", amount: "1000", want: "7.50"},
		{name: "fixed with zero amount", model: CommissionFixed, rate: "3", amount: "0", want: "3.00"},
		{name: "zero amount percentage", model: CommissionPercentage, rate: "20", amount: "0", want: "0.00"},
		{name: "negative fixed clamps", model: CommissionFixed, rate: "-4", amount: "10", want: "0.00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeCommission(tc.model, dec(tc.rate), dec(tc.amount))
			require.NoError(t, err)
			require.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestComputeCommissionUnknownModel(t *testing.T) {
	_, err := ComputeCommission(CommissionModel("tiered"), dec("1"), dec("1"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestProgramValidate(t *testing.T) {
	base := Program{
		Name:                  "Spring launch",
		CommissionModel:       CommissionPercentage,
		CommissionRate:        dec("10"),
		TargetURL:             "https://shop.example.com/spring",
		Active:                true,
		AttributionWindowDays: 30,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(p *Program)
	}{
		{name: "empty name", mutate: func(p *Program) { p.Name = " " }},
		{name: "unknown model", mutate: func(p *Program) { p.CommissionModel = "tiered" }},
		{name: "negative rate", mutate: func(p *Program) { p.CommissionRate = dec("-1") }},
		{name: "percentage above 100", mutate: func(p *Program) { p.CommissionRate = dec("100.01") }},
		{name: "rate finer than storage", mutate: func(p *Program) { p.CommissionRate = dec("2.55555") }},
		{name: "zero window", mutate: func(p *Program) { p.AttributionWindowDays = 0 }},
		{name: "window too long", mutate: func(p *Program) { p.AttributionWindowDays = MaxAttributionWindowDays + 1 }},
		{name: "relative target", mutate: func(p *Program) { p.TargetURL = "/spring" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidInput))
		})
	}

	fixed := base
	fixed.CommissionModel = CommissionFixed
	fixed.CommissionRate = dec("250")
	require.NoError(t, fixed.Validate(), "fixed rates are not capped at 100")
}

func TestProgramCookieMaxAge(t *testing.T) {
	p := Program{AttributionWindowDays: 30}
	require.Equal(t, 43200, p.CookieMaxAgeMinutes())
	require.Equal(t, 30*24*60*60.0, p.AttributionWindow().Seconds())
}

func TestParseCommissionModel(t *testing.T) {
	m, err := ParseCommissionModel(" Percentage ")
	require.NoError(t, err)
	require.Equal(t, CommissionPercentage, m)

	_, err = ParseCommissionModel("")
	require.ErrorIs(t, err, ErrInvalidInput)
}
