// Package service exposes derivative market data, streams and estimates resolved against the indexer
package service

import (
	"context"
	"fmt"
	"sync"

	"dex_trader/internal/core"
	"dex_trader/internal/market"
	"dex_trader/internal/risk/margin"
	"dex_trader/internal/stream"
	"dex_trader/internal/trading/order"
	"dex_trader/internal/trading/orderbook"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/telemetry"

	"github.com/shopspring/decimal"
)

// Metric buckets of indexer calls
const (
	BucketFetchMarkets        = "derivatives.fetch_markets"
	BucketFetchMarket         = "derivatives.fetch_market"
	BucketFetchMarketSummary  = "derivatives.fetch_market_summary"
	BucketFetchMarketsSummary = "derivatives.fetch_markets_summary"
	BucketFetchOrderbook      = "derivatives.fetch_orderbook"
	BucketFetchTrades         = "derivatives.fetch_trades"
	BucketFetchPositions      = "derivatives.fetch_positions"
	BucketFetchOrders         = "derivatives.fetch_orders"
	BucketFetchMarkPrice      = "derivatives.fetch_mark_price"
)

// DerivativesService is the application layer over the derivatives indexer
type DerivativesService struct {
	consumer core.IMarketConsumer
	streamer core.IStreamer
	streams  *stream.Registry
	logger   core.ILogger

	markets map[string]core.Market
	mu      sync.RWMutex
}

// NewDerivativesService wires a consumer and streamer behind a stream registry
func NewDerivativesService(consumer core.IMarketConsumer, streamer core.IStreamer, streams *stream.Registry, logger core.ILogger) *DerivativesService {
	return &DerivativesService{
		consumer: consumer,
		streamer: streamer,
		streams:  streams,
		logger:   logger.WithField("component", "derivatives_service"),
		markets:  make(map[string]core.Market),
	}
}

func (s *DerivativesService) cache(markets ...core.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range markets {
		s.markets[m.MarketID] = m
	}
}

// ActiveMarketIDs returns the IDs of all markets fetched so far
func (s *DerivativesService) ActiveMarketIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.markets))
	for id := range s.markets {
		ids = append(ids, id)
	}
	return ids
}

// FetchMarkets returns all markets with quote token metadata, transformed for display
func (s *DerivativesService) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	raw, err := telemetry.SendAndRecord(ctx, BucketFetchMarkets, s.consumer.FetchMarkets)
	if err != nil {
		return nil, err
	}
	markets := market.ToUIMarkets(market.FilterMarketsWithQuoteToken(raw))
	s.cache(markets...)
	return markets, nil
}

func (s *DerivativesService) FetchMarket(ctx context.Context, marketID string) (core.Market, error) {
	raw, err := telemetry.SendAndRecord(ctx, BucketFetchMarket, func(ctx context.Context) (*core.Market, error) {
		return s.consumer.FetchMarket(ctx, marketID)
	})
	if err != nil {
		return core.Market{}, err
	}
	m := market.ToUIMarket(*raw)
	s.cache(m)
	return m, nil
}

// Market resolves a market from the cache, fetching it on a miss
func (s *DerivativesService) Market(ctx context.Context, marketID string) (core.Market, error) {
	s.mu.RLock()
	m, ok := s.markets[marketID]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}
	return s.FetchMarket(ctx, marketID)
}

// FetchMarketSummary returns the summary of a market, keyed by the requested ID
func (s *DerivativesService) FetchMarketSummary(ctx context.Context, marketID string) (core.MarketSummary, error) {
	summary, err := telemetry.SendAndRecord(ctx, BucketFetchMarketSummary, func(ctx context.Context) (*core.MarketSummary, error) {
		return s.consumer.FetchMarketSummary(ctx, marketID)
	})
	if err != nil {
		return core.MarketSummary{}, err
	}
	out := *summary
	out.MarketID = marketID
	return out, nil
}

// FetchMarketsSummary fetches all summaries and merges them into old, see market.MergeSummaries
func (s *DerivativesService) FetchMarketsSummary(ctx context.Context, old []core.MarketSummary) ([]core.MarketSummary, error) {
	fresh, err := telemetry.SendAndRecord(ctx, BucketFetchMarketsSummary, s.consumer.FetchMarketsSummary)
	if err != nil {
		return nil, err
	}
	return market.MergeSummaries(old, fresh), nil
}

func (s *DerivativesService) FetchOrderbook(ctx context.Context, marketID string) (*core.Orderbook, error) {
	return telemetry.SendAndRecord(ctx, BucketFetchOrderbook, func(ctx context.Context) (*core.Orderbook, error) {
		return s.consumer.FetchOrderbook(ctx, marketID)
	})
}

func (s *DerivativesService) FetchTrades(ctx context.Context, filter core.SubaccountFilter) ([]core.Trade, error) {
	return telemetry.SendAndRecord(ctx, BucketFetchTrades, func(ctx context.Context) ([]core.Trade, error) {
		return s.consumer.FetchTrades(ctx, filter)
	})
}

func (s *DerivativesService) FetchPositions(ctx context.Context, filter core.SubaccountFilter) ([]core.Position, error) {
	return telemetry.SendAndRecord(ctx, BucketFetchPositions, func(ctx context.Context) ([]core.Position, error) {
		return s.consumer.FetchPositions(ctx, filter)
	})
}

func (s *DerivativesService) FetchOrders(ctx context.Context, filter core.SubaccountFilter) ([]core.Order, error) {
	return telemetry.SendAndRecord(ctx, BucketFetchOrders, func(ctx context.Context) ([]core.Order, error) {
		return s.consumer.FetchOrders(ctx, filter)
	})
}

// FetchMarkPrice returns the raw oracle price of m, "0" when the oracle has none
func (s *DerivativesService) FetchMarkPrice(ctx context.Context, m core.Market) (string, error) {
	price, err := telemetry.SendAndRecord(ctx, BucketFetchMarkPrice, func(ctx context.Context) (string, error) {
		return s.consumer.FetchOraclePrice(ctx, oracleQuery(m))
	})
	if err != nil {
		return "", err
	}
	if price == "" {
		return "0", nil
	}
	return price, nil
}

// PriceInfo is the display price state of a market
type PriceInfo struct {
	MarkPrice     decimal.Decimal    `json:"markPrice"`
	LastPrice     decimal.Decimal    `json:"lastPrice"`
	ChangePercent decimal.Decimal    `json:"changePercent"`
	Direction     market.PriceChange `json:"direction"`
}

// FetchPriceInfo combines the oracle price with recent market trades.
// The mark price falls back to the last traded price when the oracle has none.
func (s *DerivativesService) FetchPriceInfo(ctx context.Context, marketID string) (PriceInfo, error) {
	m, err := s.Market(ctx, marketID)
	if err != nil {
		return PriceInfo{}, err
	}
	raw, err := s.FetchMarkPrice(ctx, m)
	if err != nil {
		return PriceInfo{}, err
	}
	trades, err := s.FetchTrades(ctx, core.SubaccountFilter{MarketID: marketID})
	if err != nil {
		return PriceInfo{}, err
	}

	change := market.ChangeInPercentage(trades)
	return PriceInfo{
		MarkPrice:     market.EffectiveMarkPrice(raw, &m, trades),
		LastPrice:     market.LastTradedPrice(trades, &m),
		ChangePercent: change,
		Direction:     market.PriceChangeDirection(change),
	}, nil
}

func oracleQuery(m core.Market) core.OracleQuery {
	return core.OracleQuery{
		BaseSymbol:  m.OracleBase,
		QuoteSymbol: m.OracleQuote,
		OracleType:  m.OracleType,
	}
}

// Streams are started at most once per type until CancelMarketStreams.

func (s *DerivativesService) StreamOrderbook(ctx context.Context, marketID string, callback func(core.OrderbookUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeOrderbook, func(ctx context.Context) error {
		return s.streamer.StreamOrderbook(ctx, marketID, callback)
	})
	return err
}

func (s *DerivativesService) StreamTrades(ctx context.Context, marketID string, callback func(core.TradeUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeTrades, func(ctx context.Context) error {
		return s.streamer.StreamTrades(ctx, core.SubaccountFilter{MarketID: marketID}, callback)
	})
	return err
}

func (s *DerivativesService) StreamSubaccountTrades(ctx context.Context, filter core.SubaccountFilter, callback func(core.TradeUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeSubaccountTrades, func(ctx context.Context) error {
		return s.streamer.StreamTrades(ctx, filter, callback)
	})
	return err
}

func (s *DerivativesService) StreamSubaccountOrders(ctx context.Context, filter core.SubaccountFilter, callback func(core.OrderUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeSubaccountOrders, func(ctx context.Context) error {
		return s.streamer.StreamOrders(ctx, filter, callback)
	})
	return err
}

func (s *DerivativesService) StreamSubaccountPositions(ctx context.Context, filter core.SubaccountFilter, callback func(core.PositionUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeSubaccountPositions, func(ctx context.Context) error {
		return s.streamer.StreamPositions(ctx, filter, callback)
	})
	return err
}

func (s *DerivativesService) StreamMarketMarkPrice(ctx context.Context, m core.Market, callback func(core.PriceUpdate)) error {
	_, err := s.streams.StartIfAbsent(ctx, stream.TypeOraclePrices, func(ctx context.Context) error {
		return s.streamer.StreamOraclePrices(ctx, oracleQuery(m), callback)
	})
	return err
}

// CancelMarketStreams stops every stream tied to the current market
func (s *DerivativesService) CancelMarketStreams() {
	s.streams.Cancel(stream.MarketTypes...)
}

// MarketOrderRequest asks for the execution of a market order of Amount against the book
type MarketOrderRequest struct {
	MarketID string
	Side     core.OrderSide
	Amount   decimal.Decimal
}

// EstimateMarketOrder walks the live book of the request's market
func (s *DerivativesService) EstimateMarketOrder(ctx context.Context, req MarketOrderRequest) (core.ExecutionEstimate, error) {
	if !req.Amount.IsPositive() {
		return core.ExecutionEstimate{}, fmt.Errorf("amount %s: %w", req.Amount, apperrors.ErrInvalidInput)
	}
	m, err := s.Market(ctx, req.MarketID)
	if err != nil {
		return core.ExecutionEstimate{}, err
	}
	book, err := s.FetchOrderbook(ctx, req.MarketID)
	if err != nil {
		return core.ExecutionEstimate{}, err
	}

	telemetry.GetGlobalMetrics().RecordEstimatorCall(ctx, "execution")
	return orderbook.EstimateExecution(book.Levels(req.Side), m.Decimals(), req.Amount)
}

// MaxFillableSize returns the largest market order the budget can open on side
func (s *DerivativesService) MaxFillableSize(ctx context.Context, marketID string, side core.OrderSide, budget orderbook.FillBudget) (decimal.Decimal, error) {
	m, err := s.Market(ctx, marketID)
	if err != nil {
		return decimal.Zero, err
	}
	book, err := s.FetchOrderbook(ctx, marketID)
	if err != nil {
		return decimal.Zero, err
	}

	telemetry.GetGlobalMetrics().RecordEstimatorCall(ctx, "max_fillable")
	return orderbook.MaxFillableSize(book.Levels(side), m.Decimals(), budget)
}

// LiquidationRequest describes a prospective order for liquidation price estimation
type LiquidationRequest struct {
	MarketID  string
	OrderType order.OrderType
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Margin    decimal.Decimal
}

// LiquidationPrice computes the liquidation price using the market's maintenance margin ratio
func (s *DerivativesService) LiquidationPrice(ctx context.Context, req LiquidationRequest) (decimal.Decimal, error) {
	m, err := s.Market(ctx, req.MarketID)
	if err != nil {
		return decimal.Zero, err
	}

	telemetry.GetGlobalMetrics().RecordEstimatorCall(ctx, "liquidation")
	return margin.CalculateLiquidationPrice(margin.LiquidationInput{
		Price:                  req.Price,
		Quantity:               req.Quantity,
		Margin:                 req.Margin,
		Side:                   order.Side(req.OrderType),
		MaintenanceMarginRatio: m.MaintenanceMarginRatio,
	})
}

// RequiredMargin returns quantity * price / leverage
func (s *DerivativesService) RequiredMargin(ctx context.Context, quantity, price, leverage decimal.Decimal) (decimal.Decimal, error) {
	telemetry.GetGlobalMetrics().RecordEstimatorCall(ctx, "margin")
	return margin.CalculateMargin(quantity, price, leverage)
}
