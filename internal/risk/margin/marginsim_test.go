package margin

import (
	"testing"

	"dex_trader/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarginSim_Assess(t *testing.T) {
	sim := NewMarginSim(d("0.05"))

	pos := core.Position{
		MarketID:   "0xbtc",
		Direction:  "long",
		Quantity:   d("10"),
		EntryPrice: d("100"),
		Margin:     d("150"),
		MarkPrice:  d("95"),
	}

	t.Run("falls back to position mark price", func(t *testing.T) {
		risk, err := sim.Assess(pos)
		require.NoError(t, err)
		assert.True(t, risk.MarkPrice.Equal(d("95")))
		assert.False(t, risk.WouldLiquidate)
		assert.True(t, risk.Distance.IsPositive())
	})

	t.Run("tracked price below liquidation", func(t *testing.T) {
		sim.UpdatePrice("0xbtc", d("85"))
		risk, err := sim.Assess(pos)
		require.NoError(t, err)
		assert.True(t, risk.WouldLiquidate)
	})

	t.Run("short uses market mmr", func(t *testing.T) {
		sim.UpdateMarket(core.Market{MarketID: "0xeth", MaintenanceMarginRatio: d("0.1")})
		assert.True(t, sim.MMR("0xeth").Equal(d("0.1")))
		assert.True(t, sim.MMR("0xunknown").Equal(d("0.05")))

		sim.UpdatePrice("0xeth", d("120"))
		risk, err := sim.Assess(core.Position{
			MarketID:   "0xeth",
			Direction:  "short",
			Quantity:   d("10"),
			EntryPrice: d("100"),
			Margin:     d("100"),
		})
		require.NoError(t, err)
		// 1100 / 11
		assert.True(t, risk.LiquidationPrice.Equal(d("100")))
		assert.True(t, risk.WouldLiquidate)
	})

	t.Run("no mark price", func(t *testing.T) {
		risk, err := sim.Assess(core.Position{
			MarketID:   "0xnone",
			Direction:  "long",
			Quantity:   d("1"),
			EntryPrice: d("100"),
			Margin:     d("50"),
		})
		require.NoError(t, err)
		assert.True(t, risk.Distance.IsZero())
		assert.False(t, risk.WouldLiquidate)
	})
}
