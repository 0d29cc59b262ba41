package market

import (
	"dex_trader/internal/core"
	"dex_trader/pkg/tradingutils"

	"github.com/shopspring/decimal"
)

// PriceChange is the direction of the latest price move
type PriceChange string

const (
	NoChange PriceChange = "no-change"
	Increase PriceChange = "increase"
	Decrease PriceChange = "decrease"
)

var hundred = decimal.NewFromInt(100)

// LastTradedPrice returns the newest trade price in human units.
// trades are ordered newest first.
func LastTradedPrice(trades []core.Trade, m *core.Market) decimal.Decimal {
	if m == nil || len(trades) == 0 || m.QuoteToken == nil {
		return decimal.Zero
	}
	return tradingutils.ToBase(trades[0].ExecutionPrice, m.QuoteToken.Decimals)
}

// ChangeInPercentage compares the newest trade with the most recent trade at a different price
func ChangeInPercentage(trades []core.Trade) decimal.Decimal {
	if len(trades) == 0 {
		return decimal.Zero
	}

	last := trades[0].ExecutionPrice
	for _, t := range trades[1:] {
		if t.ExecutionPrice.Equal(last) {
			continue
		}
		if t.ExecutionPrice.IsZero() {
			return decimal.Zero
		}
		return last.Sub(t.ExecutionPrice).Div(t.ExecutionPrice).Mul(hundred)
	}
	return decimal.Zero
}

// PriceChangeDirection classifies a percentage change
func PriceChangeDirection(pct decimal.Decimal) PriceChange {
	switch pct.Sign() {
	case 0:
		return NoChange
	case 1:
		return Increase
	default:
		return Decrease
	}
}

// MarkPrice rescales a raw oracle price by the market's oracle scale factor.
// Nothing is applied when the factor is unset or already equals the quote decimals.
func MarkPrice(raw string, m *core.Market) string {
	if m == nil {
		return "0"
	}
	if raw == "" {
		raw = "0"
	}
	if m.OracleScaleFactor == 0 || m.QuoteToken == nil || m.QuoteToken.Decimals == m.OracleScaleFactor {
		return raw
	}

	price := tradingutils.ParseOrZero(raw)
	return price.Shift(m.OracleScaleFactor - m.QuoteToken.Decimals).String()
}

// EffectiveMarkPrice is the mark price, or the last traded price when no mark price is known
func EffectiveMarkPrice(raw string, m *core.Market, trades []core.Trade) decimal.Decimal {
	mark := tradingutils.ParseOrZero(MarkPrice(raw, m))
	if !mark.IsZero() {
		return mark
	}
	return LastTradedPrice(trades, m)
}
