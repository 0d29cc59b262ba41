// Package orderbook estimates execution prices and fillable sizes by walking price levels.
//
// Levels are consumed in the order given, best price first. Prices are in minor
// units of the quote token and are rescaled with the market quote decimals.
// Quantities are used as-is.
package orderbook

import (
	"fmt"

	"dex_trader/internal/core"
	"dex_trader/internal/risk/margin"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// WorstExecutionPrice returns the price of the deepest level needed to fill amount.
// When the book is too thin it returns the last level's price, and zero for an empty book.
func WorstExecutionPrice(levels []core.PriceLevel, market core.MarketDecimals, amount decimal.Decimal) decimal.Decimal {
	remaining := amount
	worst := decimal.Zero

	for _, level := range levels {
		remaining = remaining.Sub(tradingutils.Min(remaining, level.Quantity))
		worst = tradingutils.ToBase(level.Price, market.QuoteDecimals)
		if !remaining.IsPositive() {
			return worst
		}
	}

	return worst
}

// AverageExecutionPrice returns the volume weighted price of filling amount.
// It returns ErrNoLiquidity when nothing can be filled.
func AverageExecutionPrice(levels []core.PriceLevel, market core.MarketDecimals, amount decimal.Decimal) (decimal.Decimal, error) {
	sum, filled := walk(levels, market, amount)
	if !filled.IsPositive() {
		return decimal.Zero, fmt.Errorf("average price for %s: %w", amount, apperrors.ErrNoLiquidity)
	}
	return sum.Div(filled), nil
}

// EstimateExecution computes worst price, average price and filled quantity for amount
func EstimateExecution(levels []core.PriceLevel, market core.MarketDecimals, amount decimal.Decimal) (core.ExecutionEstimate, error) {
	sum, filled := walk(levels, market, amount)
	estimate := core.ExecutionEstimate{
		WorstPrice:     WorstExecutionPrice(levels, market, amount),
		AveragePrice:   decimal.Zero,
		FilledQuantity: filled,
	}
	if !filled.IsPositive() {
		return estimate, fmt.Errorf("estimate for %s: %w", amount, apperrors.ErrNoLiquidity)
	}
	estimate.AveragePrice = sum.Div(filled)
	return estimate, nil
}

// walk returns the notional and quantity filled across the whole book
func walk(levels []core.PriceLevel, market core.MarketDecimals, amount decimal.Decimal) (notional, filled decimal.Decimal) {
	remaining := amount
	notional = decimal.Zero

	for _, level := range levels {
		fill := tradingutils.Min(remaining, level.Quantity)
		price := tradingutils.ToBase(level.Price, market.QuoteDecimals)
		notional = notional.Add(price.Mul(fill))
		remaining = remaining.Sub(fill)
	}

	return notional, amount.Sub(remaining)
}

// FillBudget bounds how much of the book a market order may consume
type FillBudget struct {
	AvailableMargin decimal.Decimal
	// Slippage multiplies every level price, e.g. 1.005 for buys
	Slippage decimal.Decimal
	Leverage decimal.Decimal
	// Percent is the fraction of available margin to use, in (0, 1]
	Percent decimal.Decimal
}

// NewFillBudget returns a budget with leverage and percent set to one
func NewFillBudget(availableMargin, slippage decimal.Decimal) FillBudget {
	return FillBudget{
		AvailableMargin: availableMargin,
		Slippage:        slippage,
		Leverage:        one,
		Percent:         one,
	}
}

// MaxFillableSize returns the largest quantity whose margin plus taker fees fit the budget.
// If the budget outlasts the book, the total book quantity is returned.
func MaxFillableSize(levels []core.PriceLevel, market core.MarketDecimals, budget FillBudget) (decimal.Decimal, error) {
	if !budget.Leverage.IsPositive() {
		return decimal.Zero, fmt.Errorf("max fillable size: %w", apperrors.ErrInvalidLeverage)
	}

	fee := market.TakerFeeRate
	available := budget.AvailableMargin.Mul(budget.Percent)
	totalQuantity := decimal.Zero

	for _, level := range levels {
		price := tradingutils.ToBase(level.Price.Mul(budget.Slippage), market.QuoteDecimals)
		totalQuantity = totalQuantity.Add(tradingutils.RoundQuantity(level.Quantity, market.QuantityDecimals))

		fees := totalQuantity.Mul(price).Mul(fee)
		required, err := margin.CalculateMargin(totalQuantity, price, budget.Leverage)
		if err != nil {
			return decimal.Zero, err
		}

		if required.Add(fees).GreaterThan(available) {
			denominator := fee.Mul(budget.Leverage).Add(one).Mul(price)
			if denominator.IsZero() {
				return decimal.Zero, fmt.Errorf("max fillable size at zero price: %w", apperrors.ErrUndefinedResult)
			}
			return available.Mul(budget.Leverage).Div(denominator), nil
		}
	}

	return totalQuantity, nil
}
