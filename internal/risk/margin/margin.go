// Package margin computes required margin and liquidation prices for derivative positions
package margin

import (
	"fmt"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// LiquidationInput describes a position for liquidation price calculation
type LiquidationInput struct {
	Price                  decimal.Decimal
	Quantity               decimal.Decimal
	Margin                 decimal.Decimal
	Side                   core.OrderSide
	MaintenanceMarginRatio decimal.Decimal
}

// CalculateMargin returns quantity * price / leverage
func CalculateMargin(quantity, price, leverage decimal.Decimal) (decimal.Decimal, error) {
	if !leverage.IsPositive() {
		return decimal.Zero, fmt.Errorf("leverage %s: %w", leverage, apperrors.ErrInvalidLeverage)
	}
	return quantity.Mul(price).Div(leverage), nil
}

// CalculateLiquidationPrice returns the mark price at which the position is liquidated.
// A zero price, quantity or margin yields zero. Negative results are clamped to zero.
func CalculateLiquidationPrice(in LiquidationInput) (decimal.Decimal, error) {
	if in.Price.IsZero() || in.Quantity.IsZero() || in.Margin.IsZero() {
		return decimal.Zero, nil
	}

	notional := in.Price.Mul(in.Quantity)

	var numerator, denominator decimal.Decimal
	if in.Side == core.SideBuy {
		numerator = in.Margin.Sub(notional)
		denominator = in.MaintenanceMarginRatio.Sub(one).Mul(in.Quantity)
	} else {
		numerator = in.Margin.Add(notional)
		denominator = in.MaintenanceMarginRatio.Mul(in.Quantity).Add(in.Quantity)
	}

	if denominator.IsZero() {
		return decimal.Zero, fmt.Errorf("liquidation denominator is zero: %w", apperrors.ErrUndefinedResult)
	}

	liquidationPrice := numerator.Div(denominator)
	if liquidationPrice.IsNegative() {
		return decimal.Zero, nil
	}
	return liquidationPrice, nil
}
