package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const currencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ComputeCommission maps a commission model, rate and transaction amount to a
// commission rounded half-up to the currency minor unit.
func ComputeCommission(model CommissionModel, rate, amount decimal.Decimal) (decimal.Decimal, error) {
	var out decimal.Decimal
	switch model {
	case CommissionPercentage:
		out = amount.Mul(rate).Div(hundred)
	case CommissionFixed:
		out = rate
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown commission model %q", ErrInvalidInput, model)
	}
	// Round is half away from zero, which is half-up for non-negative values.
	out = out.Round(currencyPlaces)
	if out.IsNegative() {
		return decimal.Zero, nil
	}
	return out, nil
}

// RoundMoney normalises a stored or summed amount to currency precision.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(currencyPlaces)
}
