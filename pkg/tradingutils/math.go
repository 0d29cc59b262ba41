// Package tradingutils converts between human-readable and on-chain amounts
package tradingutils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the decimals of the native token
const DefaultDecimals int32 = 18

// ToWei scales a human amount into minor units: value * 10^decimals
func ToWei(value decimal.Decimal, decimals int32) decimal.Decimal {
	return value.Shift(decimals)
}

// ToBase scales a minor-unit amount into a human amount: value / 10^decimals
func ToBase(value decimal.Decimal, decimals int32) decimal.Decimal {
	return value.Shift(-decimals)
}

// Min returns the smaller of a and b
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// RoundDown truncates toward zero at the given decimals
func RoundDown(value decimal.Decimal, decimals int32) decimal.Decimal {
	return value.RoundDown(decimals)
}

// RoundUp rounds away from zero at the given decimals
func RoundUp(value decimal.Decimal, decimals int32) decimal.Decimal {
	return value.RoundUp(decimals)
}

// RoundPrice rounds a price half-up to the given decimals
func RoundPrice(price decimal.Decimal, priceDecimals int32) decimal.Decimal {
	return price.Round(priceDecimals)
}

// RoundQuantity rounds a quantity half-up to the given decimals
func RoundQuantity(qty decimal.Decimal, qtyDecimals int32) decimal.Decimal {
	return qty.Round(qtyDecimals)
}

// ToFixed formats a value with exactly the given decimals, rounding down
func ToFixed(value decimal.Decimal, decimals int32) string {
	return value.RoundDown(decimals).StringFixed(decimals)
}

// DenomAmountToChainAmount converts a human amount of a token to its chain amount
func DenomAmountToChainAmount(value decimal.Decimal, decimals int32) decimal.Decimal {
	return ToWei(value, decimals).Truncate(0)
}

// SpotPriceToChainPrice converts a human spot price to the chain price.
// Chain prices are quoted per base minor unit: price * 10^(quote - base).
func SpotPriceToChainPrice(price decimal.Decimal, baseDecimals, quoteDecimals int32) decimal.Decimal {
	return price.Shift(quoteDecimals - baseDecimals)
}

// SpotQuantityToChainQuantity converts a human spot quantity to base minor units
func SpotQuantityToChainQuantity(quantity decimal.Decimal, baseDecimals int32) decimal.Decimal {
	return ToWei(quantity, baseDecimals)
}

// DecimalsFromTickSize returns the number of fractional digits of a tick size.
// A tick of 0.001 has 3 decimals, a tick of 10 has 0.
func DecimalsFromTickSize(tick decimal.Decimal) int32 {
	s := tick.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}

// ParseOrZero parses a decimal string, returning zero on empty or malformed input
func ParseOrZero(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
