// Package core defines the shared types and interfaces of the trading client
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IMarketConsumer fetches market data from the indexer
type IMarketConsumer interface {
	FetchMarkets(ctx context.Context) ([]Market, error)
	FetchMarket(ctx context.Context, marketID string) (*Market, error)
	FetchOrderbook(ctx context.Context, marketID string) (*Orderbook, error)
	FetchMarketSummary(ctx context.Context, marketID string) (*MarketSummary, error)
	FetchMarketsSummary(ctx context.Context) ([]MarketSummary, error)
	FetchTrades(ctx context.Context, filter SubaccountFilter) ([]Trade, error)
	FetchPositions(ctx context.Context, filter SubaccountFilter) ([]Position, error)
	FetchOrders(ctx context.Context, filter SubaccountFilter) ([]Order, error)
	FetchOraclePrice(ctx context.Context, query OracleQuery) (string, error)
}

// IAccountConsumer fetches account data from the indexer
type IAccountConsumer interface {
	FetchGranteeGrants(ctx context.Context, address string) ([]Grant, error)
	FetchGranterGrants(ctx context.Context, address string) ([]Grant, error)
	FetchSubaccountBalances(ctx context.Context, subaccountID string) ([]Balance, error)
}

// IGasPriceProvider fetches the current gas price
type IGasPriceProvider interface {
	FetchGasPrice(ctx context.Context) (decimal.Decimal, error)
}

// IStreamer opens indexer streams. Each call blocks the stream into a
// background goroutine that lives until ctx is canceled.
type IStreamer interface {
	StreamOrderbook(ctx context.Context, marketID string, callback func(OrderbookUpdate)) error
	StreamTrades(ctx context.Context, filter SubaccountFilter, callback func(TradeUpdate)) error
	StreamOrders(ctx context.Context, filter SubaccountFilter, callback func(OrderUpdate)) error
	StreamPositions(ctx context.Context, filter SubaccountFilter, callback func(PositionUpdate)) error
	StreamOraclePrices(ctx context.Context, query OracleQuery, callback func(PriceUpdate)) error
}

// IHealthMonitor defines the interface for health monitoring
type IHealthMonitor interface {
	Register(component string, check func() error)
	GetStatus() map[string]string
	IsHealthy() bool
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
