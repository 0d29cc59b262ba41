// Package validation holds the decimal form rules of the trading forms.
// Every rule returns nil when the value is valid.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/tradingutils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Error is a failed rule
type Error struct {
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *Error) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func fail(rule, format string, args ...interface{}) error {
	return &Error{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

var (
	numberPattern = regexp.MustCompile(`^(0|[1-9]\d*)(\.\d+)?$`)
	emailPattern  = regexp.MustCompile(`^[^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*@([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}$`)
	fieldPattern  = regexp.MustCompile(`[^a-zA-Z]+`)

	onePercent = decimal.RequireFromString("0.01")
	ten        = decimal.NewFromInt(10)
)

const displayDecimals = 2

// Required fails on empty, malformed or zero values
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" || tradingutils.ParseOrZero(value).IsZero() {
		if strings.Contains(strings.ToLower(field), "amount") {
			return fail("required", "amount is required")
		}
		return fail("required", "%s is required", fieldPattern.ReplaceAllString(field, ""))
	}
	return nil
}

// RequiredString fails only on empty values
func RequiredString(value string) error {
	if value == "" {
		return fail("required", "field is required")
	}
	return nil
}

// RequiredIfEmpty fails when both value and other are empty
func RequiredIfEmpty(value, other string) error {
	if value == "" && other == "" {
		return fail("required_if_empty", "at least one field is required")
	}
	return nil
}

// Between fails when value lies outside [min, max]
func Between(value, min, max decimal.Decimal) error {
	if min.GreaterThan(value) || max.LessThan(value) {
		if max.LessThanOrEqual(min) {
			return fail("between", "value %s cannot be higher than %s", value, max)
		}
		return fail("between", "value should be between %s and %s", min, max)
	}
	return nil
}

// BetweenInclusive is Between with a single message
func BetweenInclusive(value, min, max decimal.Decimal) error {
	if value.GreaterThan(max) || value.LessThan(min) {
		return fail("between_inclusive", "value must be between %s and %s", min, max)
	}
	return nil
}

// InvalidIfBetween fails when value lies inside [min, max]
func InvalidIfBetween(value, min, max decimal.Decimal) error {
	if value.LessThanOrEqual(max) && value.GreaterThanOrEqual(min) {
		return fail("invalid_if_between", "price range must be outside of %s - %s",
			min.StringFixed(displayDecimals), max.StringFixed(displayDecimals))
	}
	return nil
}

// MinValue fails when value < min
func MinValue(value, min decimal.Decimal) error {
	if value.LessThan(min) {
		return fail("min_value", "value should be greater than %s", min)
	}
	return nil
}

// MinValueStrict fails when value < min, for amounts
func MinValueStrict(value, min decimal.Decimal) error {
	if value.LessThan(min) {
		return fail("min_value", "minimum amount should be %s", min)
	}
	return nil
}

// GreaterThan fails when value <= min
func GreaterThan(value, min decimal.Decimal) error {
	if value.LessThanOrEqual(min) {
		return fail("greater_than", "value should be greater than %s", min.StringFixed(displayDecimals))
	}
	return nil
}

// LessThan fails when value >= max
func LessThan(value, max decimal.Decimal) error {
	if value.GreaterThanOrEqual(max) {
		return fail("less_than", "value should be less than %s", max.StringFixed(displayDecimals))
	}
	return nil
}

// MinInvestment fails when the investment is below the strategy minimum
func MinInvestment(value, min decimal.Decimal, quoteSymbol string) error {
	if value.LessThan(min) {
		return fail("min_investment", "minimum %s investment is %s", quoteSymbol, min)
	}
	return nil
}

// Insufficient fails when value exceeds the available balance
func Insufficient(value, available decimal.Decimal) error {
	if value.GreaterThan(available) {
		return fail("insufficient", "insufficient amount")
	}
	return nil
}

// MinBaseAndQuoteAmount fails when the combined value of both legs is below threshold
func MinBaseAndQuoteAmount(base, quote, threshold decimal.Decimal, baseSymbol string) error {
	if base.Add(quote).LessThan(threshold) {
		return fail("min_base_and_quote", "min %s+USDT value >= %s",
			strings.ToUpper(baseSymbol), threshold.StringFixed(displayDecimals))
	}
	return nil
}

// PositiveNumber fails unless value is a plain non-negative decimal literal
func PositiveNumber(value string) error {
	if !numberPattern.MatchString(value) {
		return fail("positive_number", "not a valid number")
	}
	return nil
}

// Integer fails unless value parses to a number greater than zero
func Integer(field, value string) error {
	if !tradingutils.ParseOrZero(value).IsPositive() {
		return fail("integer", "%s must be > 0", field)
	}
	return nil
}

// GridRange fails when [lower, upper] is too narrow for the number of grid levels
func GridRange(lower, upper decimal.Decimal, levels int64, minPriceTickSize decimal.Decimal) error {
	threshold := decimal.NewFromInt(levels).Mul(minPriceTickSize).Mul(ten)
	if upper.Sub(lower).LessThan(threshold) {
		return fail("grid_range", "price range cannot support %d grids", levels)
	}
	return nil
}

// GridField names the bound checked by SingleSided
type GridField string

const (
	LowerPrice GridField = "lower_price"
	UpperPrice GridField = "upper_price"
)

// SingleSided keeps a one-sided grid at least 1% away from the current price
func SingleSided(lower, upper, current decimal.Decimal, field GridField) error {
	delta := current.Mul(onePercent)

	switch field {
	case LowerPrice:
		threshold := current.Add(delta)
		if current.LessThan(lower) && current.LessThan(upper) && threshold.GreaterThan(lower) {
			return fail("single_sided", "lower price level should be above %s", threshold.StringFixed(displayDecimals))
		}
	case UpperPrice:
		threshold := current.Sub(delta)
		if current.GreaterThan(lower) && current.GreaterThan(upper) && threshold.LessThan(upper) {
			return fail("single_sided", "upper price level should be below %s", threshold.StringFixed(displayDecimals))
		}
	}
	return nil
}

// Email fails on malformed addresses
func Email(value string) error {
	if !emailPattern.MatchString(value) {
		return fail("email", "not a valid email")
	}
	return nil
}

// Address fails unless value is a 0x-prefixed 20 byte hex address
func Address(value string) error {
	if !strings.HasPrefix(value, "0x") || !common.IsHexAddress(value) {
		return fail("address", "not a valid address")
	}
	return nil
}
