package margin

import (
	"sync"

	"dex_trader/internal/core"

	"github.com/shopspring/decimal"
)

// PositionRisk is the liquidation profile of an open position at the current mark price
type PositionRisk struct {
	MarketID         string          `json:"marketId"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	// Distance is |mark - liquidation| / mark, zero when either price is unknown
	Distance       decimal.Decimal `json:"distance"`
	WouldLiquidate bool            `json:"wouldLiquidate"`
}

// MarginSim tracks mark prices and maintenance margin ratios per market
// and evaluates position liquidation risk against them.
type MarginSim struct {
	mu sync.RWMutex

	prices map[string]decimal.Decimal
	mmrs   map[string]decimal.Decimal

	defaultMMR decimal.Decimal
}

func NewMarginSim(defaultMMR decimal.Decimal) *MarginSim {
	return &MarginSim{
		prices:     make(map[string]decimal.Decimal),
		mmrs:       make(map[string]decimal.Decimal),
		defaultMMR: defaultMMR,
	}
}

// UpdateMarket harvests the maintenance margin ratio of a derivative market
func (s *MarginSim) UpdateMarket(market core.Market) {
	if market.MaintenanceMarginRatio.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mmrs[market.MarketID] = market.MaintenanceMarginRatio
}

func (s *MarginSim) UpdatePrice(marketID string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[marketID] = price
}

func (s *MarginSim) MMR(marketID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mmr, ok := s.mmrs[marketID]; ok {
		return mmr
	}
	return s.defaultMMR
}

// Assess computes the liquidation price of pos and compares it with the tracked mark price.
// Position direction "long" maps to the buy formula, anything else to sell.
func (s *MarginSim) Assess(pos core.Position) (PositionRisk, error) {
	side := core.SideSell
	if pos.Direction == "long" || pos.Direction == string(core.SideBuy) {
		side = core.SideBuy
	}

	liq, err := CalculateLiquidationPrice(LiquidationInput{
		Price:                  pos.EntryPrice,
		Quantity:               pos.Quantity,
		Margin:                 pos.Margin,
		Side:                   side,
		MaintenanceMarginRatio: s.MMR(pos.MarketID),
	})
	if err != nil {
		return PositionRisk{MarketID: pos.MarketID}, err
	}

	s.mu.RLock()
	mark, ok := s.prices[pos.MarketID]
	s.mu.RUnlock()
	if !ok || mark.IsZero() {
		mark = pos.MarkPrice
	}

	risk := PositionRisk{
		MarketID:         pos.MarketID,
		LiquidationPrice: liq,
		MarkPrice:        mark,
		Distance:         decimal.Zero,
	}
	if mark.IsZero() || liq.IsZero() {
		return risk, nil
	}

	risk.Distance = mark.Sub(liq).Abs().Div(mark)
	if side == core.SideBuy {
		risk.WouldLiquidate = mark.LessThanOrEqual(liq)
	} else {
		risk.WouldLiquidate = mark.GreaterThanOrEqual(liq)
	}
	return risk, nil
}
