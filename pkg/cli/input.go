// Package cli validates and parses command line arguments
package cli

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/validation"

	"github.com/shopspring/decimal"
)

var (
	injectionPattern = regexp.MustCompile(`['"]\s*;\s*|\b(DROP|DELETE|UPDATE|INSERT)\b`)
	marketIDPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ValidateInput rejects shell, path traversal and SQL injection patterns
func ValidateInput(input string) error {
	switch {
	case strings.Contains(input, ";"), strings.Contains(input, "&&"), strings.Contains(input, "||"):
	case strings.Contains(input, "../"), strings.Contains(input, `..\`):
	case injectionPattern.MatchString(strings.ToUpper(input)):
	default:
		return nil
	}
	return fmt.Errorf("potentially malicious input detected: %w", apperrors.ErrInvalidInput)
}

// ParseDecimal parses a non-negative decimal flag value
func ParseDecimal(name, value string) (decimal.Decimal, error) {
	if err := ValidateInput(value); err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	if err := validation.PositiveNumber(value); err != nil {
		return decimal.Zero, fmt.Errorf("--%s=%q: %w", name, value, err)
	}
	return decimal.RequireFromString(value), nil
}

// ValidateMarketID accepts a 0x-prefixed 32 byte hex market ID
func ValidateMarketID(id string) error {
	if !marketIDPattern.MatchString(id) {
		return fmt.Errorf("market id %q: %w", id, apperrors.ErrInvalidInput)
	}
	return nil
}
