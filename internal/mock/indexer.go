// Package mock provides an in-memory indexer for tests and offline runs
package mock

import (
	"context"
	"fmt"
	"sync"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"

	"github.com/shopspring/decimal"
)

// MockIndexer implements the indexer consumers and streamer in memory
type MockIndexer struct {
	markets      map[string]core.Market
	marketOrder  []string
	orderbooks   map[string]*core.Orderbook
	summaries    map[string]core.MarketSummary
	trades       []core.Trade
	positions    []core.Position
	orders       []core.Order
	oraclePrices map[string]string
	grants       []core.Grant
	balances     map[string][]core.Balance
	gasPrice     decimal.Decimal
	err          error
	calls        map[string]int
	mu           sync.RWMutex

	// Callbacks for streams
	orderbookCallbacks []func(core.OrderbookUpdate)
	tradeCallbacks     []func(core.TradeUpdate)
	orderCallbacks     []func(core.OrderUpdate)
	positionCallbacks  []func(core.PositionUpdate)
	priceCallbacks     []func(core.PriceUpdate)
	callbackMu         sync.RWMutex
}

var (
	_ core.IMarketConsumer   = (*MockIndexer)(nil)
	_ core.IAccountConsumer  = (*MockIndexer)(nil)
	_ core.IGasPriceProvider = (*MockIndexer)(nil)
	_ core.IStreamer         = (*MockIndexer)(nil)
)

func NewMockIndexer() *MockIndexer {
	return &MockIndexer{
		markets:      make(map[string]core.Market),
		orderbooks:   make(map[string]*core.Orderbook),
		summaries:    make(map[string]core.MarketSummary),
		oraclePrices: make(map[string]string),
		balances:     make(map[string][]core.Balance),
		calls:        make(map[string]int),
	}
}

// Setters

func (m *MockIndexer) SetMarket(market core.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markets[market.MarketID]; !ok {
		m.marketOrder = append(m.marketOrder, market.MarketID)
	}
	m.markets[market.MarketID] = market
}

func (m *MockIndexer) SetOrderbook(marketID string, book core.Orderbook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderbooks[marketID] = &book
}

func (m *MockIndexer) SetSummary(summary core.MarketSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summary.MarketID] = summary
}

func (m *MockIndexer) SetTrades(trades []core.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = trades
}

func (m *MockIndexer) SetPositions(positions []core.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

func (m *MockIndexer) SetOrders(orders []core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
}

func (m *MockIndexer) SetOraclePrice(query core.OracleQuery, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oraclePrices[oracleKey(query)] = price
}

func (m *MockIndexer) SetGrants(grants []core.Grant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = grants
}

func (m *MockIndexer) SetBalances(subaccountID string, balances []core.Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[subaccountID] = balances
}

func (m *MockIndexer) SetGasPrice(price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gasPrice = price
}

// SetError makes every fetch fail with err until cleared with nil
func (m *MockIndexer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times the named fetch was invoked
func (m *MockIndexer) Calls(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[name]
}

func (m *MockIndexer) begin(ctx context.Context, name string) error {
	m.calls[name]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

func oracleKey(q core.OracleQuery) string {
	return fmt.Sprintf("%s/%s/%s", q.BaseSymbol, q.QuoteSymbol, q.OracleType)
}

func matches(filter core.SubaccountFilter, marketID, subaccountID string) bool {
	if filter.MarketID != "" && filter.MarketID != marketID {
		return false
	}
	if filter.SubaccountID != "" && filter.SubaccountID != subaccountID {
		return false
	}
	return true
}

// Consumers

func (m *MockIndexer) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchMarkets"); err != nil {
		return nil, err
	}
	out := make([]core.Market, 0, len(m.marketOrder))
	for _, id := range m.marketOrder {
		out = append(out, m.markets[id])
	}
	return out, nil
}

func (m *MockIndexer) FetchMarket(ctx context.Context, marketID string) (*core.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchMarket"); err != nil {
		return nil, err
	}
	market, ok := m.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", marketID, apperrors.ErrMarketNotFound)
	}
	return &market, nil
}

func (m *MockIndexer) FetchOrderbook(ctx context.Context, marketID string) (*core.Orderbook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchOrderbook"); err != nil {
		return nil, err
	}
	book, ok := m.orderbooks[marketID]
	if !ok {
		return &core.Orderbook{}, nil
	}
	cp := *book
	return &cp, nil
}

func (m *MockIndexer) FetchMarketSummary(ctx context.Context, marketID string) (*core.MarketSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchMarketSummary"); err != nil {
		return nil, err
	}
	summary, ok := m.summaries[marketID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", marketID, apperrors.ErrMarketNotFound)
	}
	return &summary, nil
}

func (m *MockIndexer) FetchMarketsSummary(ctx context.Context) ([]core.MarketSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchMarketsSummary"); err != nil {
		return nil, err
	}
	out := make([]core.MarketSummary, 0, len(m.summaries))
	for _, id := range m.marketOrder {
		if s, ok := m.summaries[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockIndexer) FetchTrades(ctx context.Context, filter core.SubaccountFilter) ([]core.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchTrades"); err != nil {
		return nil, err
	}
	var out []core.Trade
	for _, t := range m.trades {
		if matches(filter, t.MarketID, t.SubaccountID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockIndexer) FetchPositions(ctx context.Context, filter core.SubaccountFilter) ([]core.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchPositions"); err != nil {
		return nil, err
	}
	var out []core.Position
	for _, p := range m.positions {
		if matches(filter, p.MarketID, p.SubaccountID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockIndexer) FetchOrders(ctx context.Context, filter core.SubaccountFilter) ([]core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchOrders"); err != nil {
		return nil, err
	}
	var out []core.Order
	for _, o := range m.orders {
		if matches(filter, o.MarketID, o.SubaccountID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockIndexer) FetchOraclePrice(ctx context.Context, query core.OracleQuery) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchOraclePrice"); err != nil {
		return "", err
	}
	return m.oraclePrices[oracleKey(query)], nil
}

func (m *MockIndexer) FetchGranteeGrants(ctx context.Context, address string) ([]core.Grant, error) {
	return m.fetchGrants(ctx, "FetchGranteeGrants", func(g core.Grant) bool { return g.Grantee == address })
}

func (m *MockIndexer) FetchGranterGrants(ctx context.Context, address string) ([]core.Grant, error) {
	return m.fetchGrants(ctx, "FetchGranterGrants", func(g core.Grant) bool { return g.Granter == address })
}

func (m *MockIndexer) fetchGrants(ctx context.Context, name string, keep func(core.Grant) bool) ([]core.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, name); err != nil {
		return nil, err
	}
	var out []core.Grant
	for _, g := range m.grants {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MockIndexer) FetchSubaccountBalances(ctx context.Context, subaccountID string) ([]core.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchSubaccountBalances"); err != nil {
		return nil, err
	}
	return m.balances[subaccountID], nil
}

func (m *MockIndexer) FetchGasPrice(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "FetchGasPrice"); err != nil {
		return decimal.Zero, err
	}
	return m.gasPrice, nil
}

// Streams register callbacks that the Push helpers invoke

func (m *MockIndexer) StreamOrderbook(ctx context.Context, marketID string, callback func(core.OrderbookUpdate)) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.orderbookCallbacks = append(m.orderbookCallbacks, callback)
	return nil
}

func (m *MockIndexer) StreamTrades(ctx context.Context, filter core.SubaccountFilter, callback func(core.TradeUpdate)) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.tradeCallbacks = append(m.tradeCallbacks, callback)
	return nil
}

func (m *MockIndexer) StreamOrders(ctx context.Context, filter core.SubaccountFilter, callback func(core.OrderUpdate)) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.orderCallbacks = append(m.orderCallbacks, callback)
	return nil
}

func (m *MockIndexer) StreamPositions(ctx context.Context, filter core.SubaccountFilter, callback func(core.PositionUpdate)) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.positionCallbacks = append(m.positionCallbacks, callback)
	return nil
}

func (m *MockIndexer) StreamOraclePrices(ctx context.Context, query core.OracleQuery, callback func(core.PriceUpdate)) error {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.priceCallbacks = append(m.priceCallbacks, callback)
	return nil
}

// StreamCount returns the number of registered stream callbacks across all streams
func (m *MockIndexer) StreamCount() int {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	return len(m.orderbookCallbacks) + len(m.tradeCallbacks) + len(m.orderCallbacks) +
		len(m.positionCallbacks) + len(m.priceCallbacks)
}

func (m *MockIndexer) PushOrderbook(update core.OrderbookUpdate) {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	for _, cb := range m.orderbookCallbacks {
		cb(update)
	}
}

func (m *MockIndexer) PushTrade(update core.TradeUpdate) {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	for _, cb := range m.tradeCallbacks {
		cb(update)
	}
}

func (m *MockIndexer) PushPosition(update core.PositionUpdate) {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	for _, cb := range m.positionCallbacks {
		cb(update)
	}
}

func (m *MockIndexer) PushPrice(update core.PriceUpdate) {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	for _, cb := range m.priceCallbacks {
		cb(update)
	}
}

func (m *MockIndexer) PushOrder(update core.OrderUpdate) {
	m.callbackMu.RLock()
	defer m.callbackMu.RUnlock()
	for _, cb := range m.orderCallbacks {
		cb(update)
	}
}
