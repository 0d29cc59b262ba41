package orderbook

import (
	"sync"
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

// USDT quoted market: prices carry 6 decimals
var usdtMarket = core.MarketDecimals{
	QuoteDecimals:    6,
	QuantityDecimals: 3,
	PriceDecimals:    2,
	TakerFeeRate:     d("0.001"),
}

func level(price, quantity string) core.PriceLevel {
	return core.PriceLevel{Price: d(price), Quantity: d(quantity)}
}

func ladder() []core.PriceLevel {
	return []core.PriceLevel{
		level("100000000", "5"),
		level("105000000", "5"),
	}
}

func TestWorstExecutionPrice(t *testing.T) {
	tests := []struct {
		name   string
		levels []core.PriceLevel
		amount string
		want   string
	}{
		{"within first level", ladder(), "3", "100"},
		{"exactly first level", ladder(), "5", "100"},
		{"spans levels", ladder(), "8", "105"},
		{"exactly whole book", ladder(), "10", "105"},
		{"book too thin", ladder(), "20", "105"},
		{"empty book", nil, "1", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WorstExecutionPrice(tt.levels, usdtMarket, d(tt.amount))
			assert.True(t, got.Equal(d(tt.want)), "got %s", got)
		})
	}
}

func TestExecutionPrice_ZeroQuoteDecimals(t *testing.T) {
	levels := []core.PriceLevel{level("100", "5"), level("105", "5")}

	worst := WorstExecutionPrice(levels, core.MarketDecimals{}, d("8"))
	assert.True(t, worst.Equal(d("105")), "worst %s", worst)

	avg, err := AverageExecutionPrice(levels, core.MarketDecimals{}, d("8"))
	require.NoError(t, err)
	// (5*100 + 3*105) / 8
	assert.True(t, avg.Equal(d("101.875")), "average %s", avg)
}

func TestAverageExecutionPrice(t *testing.T) {
	t.Run("spans levels", func(t *testing.T) {
		got, err := AverageExecutionPrice(ladder(), usdtMarket, d("8"))
		require.NoError(t, err)
		// (5*100 + 3*105) / 8
		assert.True(t, got.Equal(d("101.875")), "got %s", got)
	})

	t.Run("book too thin averages filled part", func(t *testing.T) {
		got, err := AverageExecutionPrice(ladder(), usdtMarket, d("20"))
		require.NoError(t, err)
		assert.True(t, got.Equal(d("102.5")), "got %s", got)
	})

	t.Run("empty book", func(t *testing.T) {
		_, err := AverageExecutionPrice(nil, usdtMarket, d("1"))
		assert.ErrorIs(t, err, apperrors.ErrNoLiquidity)
	})

	t.Run("zero quantity levels", func(t *testing.T) {
		_, err := AverageExecutionPrice([]core.PriceLevel{level("100000000", "0")}, usdtMarket, d("1"))
		assert.ErrorIs(t, err, apperrors.ErrNoLiquidity)
	})
}

func TestEstimateExecution(t *testing.T) {
	est, err := EstimateExecution(ladder(), usdtMarket, d("8"))
	require.NoError(t, err)
	assert.True(t, est.WorstPrice.Equal(d("105")))
	assert.True(t, est.AveragePrice.Equal(d("101.875")))
	assert.True(t, est.FilledQuantity.Equal(d("8")))

	est, err = EstimateExecution(ladder(), usdtMarket, d("12"))
	require.NoError(t, err)
	assert.True(t, est.FilledQuantity.Equal(d("10")))

	_, err = EstimateExecution(nil, usdtMarket, d("1"))
	assert.ErrorIs(t, err, apperrors.ErrNoLiquidity)
}

func TestEstimator_ConcurrentCallsAgree(t *testing.T) {
	levels := ladder()
	var wg sync.WaitGroup
	results := make([]decimal.Decimal, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = AverageExecutionPrice(levels, usdtMarket, d("8"))
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.True(t, r.Equal(d("101.875")))
	}
}

func TestMaxFillableSize(t *testing.T) {
	book := []core.PriceLevel{
		level("100000000", "5"),
		level("110000000", "5"),
	}

	tests := []struct {
		name   string
		levels []core.PriceLevel
		budget FillBudget
		want   string
	}{
		{
			name:   "budget outlasts book",
			levels: book,
			budget: NewFillBudget(d("10000"), d("1")),
			want:   "10",
		},
		{
			name:   "budget exhausted on second level",
			levels: book,
			budget: NewFillBudget(d("600"), d("1")),
			// 600 / (1.001 * 110)
			want: "5.449",
		},
		{
			name:   "percent of margin",
			levels: book,
			budget: FillBudget{AvailableMargin: d("1200"), Slippage: d("1"), Leverage: d("1"), Percent: d("0.5")},
			want:   "5.449",
		},
		{
			name:   "leverage",
			levels: book,
			budget: FillBudget{AvailableMargin: d("60"), Slippage: d("1"), Leverage: d("10"), Percent: d("1")},
			// 600 / (1.01 * 110)
			want: "5.4",
		},
		{
			name:   "slippage raises price",
			levels: []core.PriceLevel{level("100000000", "10")},
			budget: NewFillBudget(d("550.55"), d("1.1")),
			// cost 1101.1 > 550.55 -> 550.55 / (1.001 * 110)
			want: "5",
		},
		{
			name:   "zero margin",
			levels: book,
			budget: NewFillBudget(decimal.Zero, d("1")),
			want:   "0",
		},
		{
			name:   "empty book",
			levels: nil,
			budget: NewFillBudget(d("100"), d("1")),
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MaxFillableSize(tt.levels, usdtMarket, tt.budget)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Truncate(3).String())
		})
	}
}

func TestMaxFillableSize_RoundsLevelQuantity(t *testing.T) {
	got, err := MaxFillableSize([]core.PriceLevel{level("1000000", "1.23456")}, usdtMarket, NewFillBudget(d("100"), d("1")))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1.235")), "got %s", got)
}

func TestMaxFillableSize_Errors(t *testing.T) {
	_, err := MaxFillableSize(ladder(), usdtMarket, FillBudget{AvailableMargin: d("1"), Slippage: d("1"), Leverage: decimal.Zero, Percent: d("1")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidLeverage)

	_, err = MaxFillableSize([]core.PriceLevel{level("0", "1")}, usdtMarket, NewFillBudget(d("-1"), d("1")))
	assert.ErrorIs(t, err, apperrors.ErrUndefinedResult)
}
