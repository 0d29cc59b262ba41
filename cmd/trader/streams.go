package main

import (
	"context"
	"fmt"

	"dex_trader/internal/alert"
	"dex_trader/internal/core"
	"dex_trader/internal/market"
	"dex_trader/internal/risk/margin"
	"dex_trader/internal/service"
	"dex_trader/internal/trading/position"
	"dex_trader/pkg/liveserver"
	"dex_trader/pkg/telemetry"
	"dex_trader/pkg/tradingutils"
)

// broadcaster is the part of the live server the feeds publish to
type broadcaster interface {
	Broadcast(msgType string, data interface{})
	BroadcastMarket(msgType, marketID string, data interface{})
}

// feeds forwards indexer streams to live clients
type feeds struct {
	svc    *service.DerivativesService
	live   broadcaster
	sim    *margin.MarginSim
	alerts *alert.AlertManager
	logger core.ILogger
}

func newFeeds(svc *service.DerivativesService, live broadcaster, sim *margin.MarginSim, alerts *alert.AlertManager, logger core.ILogger) *feeds {
	return &feeds{
		svc:    svc,
		live:   live,
		sim:    sim,
		alerts: alerts,
		logger: logger.WithField("component", "feeds"),
	}
}

// positionsPayload pairs the open positions with their liquidation risk
type positionsPayload struct {
	Positions []core.Position       `json:"positions"`
	Risks     []margin.PositionRisk `json:"risks"`
}

// streamMarket forwards orderbook, trade and mark price streams of marketID until ctx is done
func (f *feeds) streamMarket(ctx context.Context, marketID string) error {
	m, err := f.svc.Market(ctx, marketID)
	if err != nil {
		return fmt.Errorf("stream market %s: %w", marketID, err)
	}
	f.sim.UpdateMarket(m)

	f.logger.Info("Starting market streams", "market_id", marketID, "ticker", m.Ticker)

	if err := f.svc.StreamOrderbook(ctx, marketID, func(u core.OrderbookUpdate) {
		f.live.BroadcastMarket(liveserver.TypeOrderbook, marketID, u)
	}); err != nil {
		return err
	}
	if err := f.svc.StreamTrades(ctx, marketID, func(u core.TradeUpdate) {
		f.live.BroadcastMarket(liveserver.TypeTrades, marketID, u)
	}); err != nil {
		return err
	}
	if err := f.svc.StreamMarketMarkPrice(ctx, m, func(u core.PriceUpdate) {
		// oracle prices carry the oracle scale, the sim compares in quote units
		f.sim.UpdatePrice(marketID, tradingutils.ParseOrZero(market.MarkPrice(u.Price.String(), &m)))
		f.live.BroadcastMarket(liveserver.TypeMarkPrice, marketID, u)
	}); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// streamPositions keeps a position store of subaccountID in sync and
// publishes every change together with the liquidation risk of each position
func (f *feeds) streamPositions(ctx context.Context, subaccountID string) error {
	markets, err := f.svc.FetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("stream positions: %w", err)
	}
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.MarketID)
		f.sim.UpdateMarket(m)
	}

	positions := position.NewStore(f.logger, telemetry.GetMeter("dex_trader/positions"))
	positions.SetActiveMarkets(ids)
	positions.OnUpdate(func(ps []core.Position) {
		f.live.Broadcast(liveserver.TypePositions, f.assess(ctx, ps))
	})

	filter := core.SubaccountFilter{SubaccountID: subaccountID}
	initial, err := f.svc.FetchPositions(ctx, filter)
	if err != nil {
		return fmt.Errorf("stream positions: %w", err)
	}
	positions.Load(initial)

	if err := positions.Watch(ctx, f.svc, filter); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func (f *feeds) assess(ctx context.Context, ps []core.Position) positionsPayload {
	payload := positionsPayload{
		Positions: ps,
		Risks:     make([]margin.PositionRisk, 0, len(ps)),
	}
	for _, p := range ps {
		risk, err := f.sim.Assess(p)
		if err != nil {
			f.logger.Warn("Position risk unavailable", "market_id", p.MarketID, "error", err)
			continue
		}
		if risk.WouldLiquidate {
			f.logger.Warn("Position at liquidation price",
				"market_id", p.MarketID,
				"mark_price", risk.MarkPrice.String(),
				"liquidation_price", risk.LiquidationPrice.String())
			f.alerts.Alert(ctx, "liquidation:"+p.MarketID, "Liquidation risk",
				fmt.Sprintf("%s %s position reached its liquidation price", p.Ticker, p.Direction),
				alert.Critical, map[string]string{
					"market_id":         p.MarketID,
					"subaccount_id":     p.SubaccountID,
					"mark_price":        risk.MarkPrice.String(),
					"liquidation_price": risk.LiquidationPrice.String(),
				})
		}
		payload.Risks = append(payload.Risks, risk)
	}
	return payload
}
