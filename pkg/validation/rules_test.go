package validation

import (
	"errors"
	"testing"

	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"required ok", Required("price", "1.5"), false},
		{"required empty", Required("price", ""), true},
		{"required zero", Required("price", "0.0"), true},
		{"required string", RequiredString(""), true},
		{"required if empty both", RequiredIfEmpty("", ""), true},
		{"required if empty one", RequiredIfEmpty("", "x"), false},

		{"between inside", Between(d("5"), d("1"), d("10")), false},
		{"between edge", Between(d("10"), d("1"), d("10")), false},
		{"between below", Between(d("0.5"), d("1"), d("10")), true},
		{"between inclusive above", BetweenInclusive(d("11"), d("1"), d("10")), true},
		{"invalid if between inside", InvalidIfBetween(d("5"), d("1"), d("10")), true},
		{"invalid if between outside", InvalidIfBetween(d("11"), d("1"), d("10")), false},

		{"min value", MinValue(d("1"), d("2")), true},
		{"min value equal", MinValue(d("2"), d("2")), false},
		{"min value strict", MinValueStrict(d("1.99"), d("2")), true},
		{"greater than equal", GreaterThan(d("2"), d("2")), true},
		{"greater than", GreaterThan(d("2.01"), d("2")), false},
		{"less than equal", LessThan(d("2"), d("2")), true},
		{"less than", LessThan(d("1"), d("2")), false},
		{"min investment", MinInvestment(d("49"), d("50"), "USDT"), true},
		{"insufficient", Insufficient(d("10.1"), d("10")), true},
		{"sufficient", Insufficient(d("10"), d("10")), false},
		{"min base and quote", MinBaseAndQuoteAmount(d("20"), d("29"), d("50"), "inj"), true},
		{"min base and quote ok", MinBaseAndQuoteAmount(d("20"), d("30"), d("50"), "inj"), false},

		{"positive number", PositiveNumber("12.5"), false},
		{"positive number leading zero", PositiveNumber("012"), true},
		{"positive number negative", PositiveNumber("-1"), true},
		{"integer", Integer("levels", "3"), false},
		{"integer zero", Integer("levels", "0"), true},
		{"integer empty", Integer("levels", ""), true},

		{"grid range narrow", GridRange(d("100"), d("100.5"), 10, d("0.01")), true},
		{"grid range wide", GridRange(d("100"), d("101"), 10, d("0.01")), false},

		{"email", Email("trader@example.com"), false},
		{"email invalid", Email("trader@"), true},
		{"address", Address("0xaf79152ac5df276d9a8e1e2e22822f9713474902"), false},
		{"address no prefix", Address("af79152ac5df276d9a8e1e2e22822f9713474902"), true},
		{"address short", Address("0x1234"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.wantErr {
				assert.NoError(t, tt.err)
				return
			}
			assert.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, apperrors.ErrInvalidInput)
		})
	}
}

func TestSingleSided(t *testing.T) {
	current := d("100")

	// Grid entirely above the price must start at least 1% above it
	assert.Error(t, SingleSided(d("100.5"), d("120"), current, LowerPrice))
	assert.NoError(t, SingleSided(d("101.5"), d("120"), current, LowerPrice))

	// Grid entirely below the price must end at least 1% below it
	assert.Error(t, SingleSided(d("80"), d("99.5"), current, UpperPrice))
	assert.NoError(t, SingleSided(d("80"), d("98"), current, UpperPrice))

	// Grids around the price are not single sided
	assert.NoError(t, SingleSided(d("90"), d("110"), current, LowerPrice))
}

func TestRequiredMessages(t *testing.T) {
	var verr *Error
	err := Required("baseAmount", "")
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount is required", verr.Message)

	err = Required("limit_price", "")
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "limitprice is required", verr.Message)
}
