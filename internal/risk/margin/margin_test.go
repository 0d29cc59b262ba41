package margin

import (
	"testing"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateMargin(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		price    string
		leverage string
		want     string
	}{
		{"basic", "10", "100", "5", "200"},
		{"no leverage", "2", "50", "1", "100"},
		{"fractional", "0.5", "30000", "20", "750"},
		{"zero quantity", "0", "100", "3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateMargin(d(tt.quantity), d(tt.price), d(tt.leverage))
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s", got)
		})
	}
}

func TestCalculateMargin_InvalidLeverage(t *testing.T) {
	for _, lev := range []string{"0", "-2"} {
		_, err := CalculateMargin(d("1"), d("1"), d(lev))
		assert.ErrorIs(t, err, apperrors.ErrInvalidLeverage)
	}
}

func TestCalculateMargin_Monotonic(t *testing.T) {
	base, err := CalculateMargin(d("10"), d("100"), d("5"))
	require.NoError(t, err)

	moreQty, _ := CalculateMargin(d("11"), d("100"), d("5"))
	morePrice, _ := CalculateMargin(d("10"), d("101"), d("5"))
	moreLev, _ := CalculateMargin(d("10"), d("100"), d("6"))

	assert.True(t, moreQty.GreaterThanOrEqual(base))
	assert.True(t, morePrice.GreaterThanOrEqual(base))
	assert.True(t, moreLev.LessThanOrEqual(base))
}

func TestCalculateLiquidationPrice(t *testing.T) {
	t.Run("long", func(t *testing.T) {
		got, err := CalculateLiquidationPrice(LiquidationInput{
			Price:                  d("100"),
			Quantity:               d("10"),
			Margin:                 d("150"),
			Side:                   core.SideBuy,
			MaintenanceMarginRatio: d("0.05"),
		})
		require.NoError(t, err)
		// -850 / -9.5
		assert.Equal(t, "89.4736", got.Truncate(4).String())
		assert.True(t, got.LessThanOrEqual(d("100")))
	})

	t.Run("short", func(t *testing.T) {
		got, err := CalculateLiquidationPrice(LiquidationInput{
			Price:                  d("100"),
			Quantity:               d("10"),
			Margin:                 d("150"),
			Side:                   core.SideSell,
			MaintenanceMarginRatio: d("0.05"),
		})
		require.NoError(t, err)
		// 1150 / 10.5
		assert.Equal(t, "109.5238", got.Truncate(4).String())
		assert.True(t, got.GreaterThan(d("100")))
	})

	t.Run("over-collateralized long clamps to zero", func(t *testing.T) {
		got, err := CalculateLiquidationPrice(LiquidationInput{
			Price:                  d("100"),
			Quantity:               d("1"),
			Margin:                 d("200"),
			Side:                   core.SideBuy,
			MaintenanceMarginRatio: d("0.05"),
		})
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		inputs := []LiquidationInput{
			{Price: decimal.Zero, Quantity: d("1"), Margin: d("1"), Side: core.SideBuy},
			{Price: d("1"), Quantity: decimal.Zero, Margin: d("1"), Side: core.SideBuy},
			{Price: d("1"), Quantity: d("1"), Margin: decimal.Zero, Side: core.SideSell},
		}
		for _, in := range inputs {
			got, err := CalculateLiquidationPrice(in)
			require.NoError(t, err)
			assert.True(t, got.IsZero())
		}
	})

	t.Run("zero denominator", func(t *testing.T) {
		_, err := CalculateLiquidationPrice(LiquidationInput{
			Price:                  d("100"),
			Quantity:               d("1"),
			Margin:                 d("10"),
			Side:                   core.SideBuy,
			MaintenanceMarginRatio: d("1"),
		})
		assert.ErrorIs(t, err, apperrors.ErrUndefinedResult)

		_, err = CalculateLiquidationPrice(LiquidationInput{
			Price:                  d("100"),
			Quantity:               d("1"),
			Margin:                 d("10"),
			Side:                   core.SideSell,
			MaintenanceMarginRatio: d("-1"),
		})
		assert.ErrorIs(t, err, apperrors.ErrUndefinedResult)
	})
}
