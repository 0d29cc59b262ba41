// Package consumer fetches market and account data from the exchange indexer REST API
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dex_trader/internal/config"
	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"
	httpclient "dex_trader/pkg/http"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// APIKeyHeader carries the indexer API key on REST, WebSocket and gRPC requests
const APIKeyHeader = "x-api-key"

const (
	pathMarkets     = "/api/v1/derivative/markets"
	pathOrderbook   = "/api/v1/derivative/orderbook/"
	pathSummary     = "/api/v1/derivative/market_summary"
	pathTrades      = "/api/v1/derivative/trades"
	pathPositions   = "/api/v1/derivative/positions"
	pathOrders      = "/api/v1/derivative/orders"
	pathOraclePrice = "/api/v1/oracle/price"
	pathGrants      = "/api/v1/authz/grants"
	pathSubaccounts = "/api/v1/subaccounts/"
	pathGasPrice    = "/api/v1/gas_price"
)

// IndexerClient implements the market, account and gas price consumers over REST
type IndexerClient struct {
	http   *httpclient.Client
	logger core.ILogger
}

var (
	_ core.IMarketConsumer   = (*IndexerClient)(nil)
	_ core.IAccountConsumer  = (*IndexerClient)(nil)
	_ core.IGasPriceProvider = (*IndexerClient)(nil)
)

// NewIndexerClient builds a rate limited, retrying client for cfg
func NewIndexerClient(cfg config.IndexerConfig, logger core.ILogger) *IndexerClient {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	client := httpclient.NewClient(
		cfg.RESTURL,
		cfg.Timeout(),
		httpclient.HeaderSigner{Header: APIKeyHeader, Value: cfg.APIKey.Reveal()},
		httpclient.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)),
	)
	return &IndexerClient{
		http:   client,
		logger: logger.WithField("component", "indexer_client"),
	}
}

func (c *IndexerClient) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	start := time.Now()
	err := c.http.GetJSON(ctx, path, params, out)
	if err != nil {
		c.logger.Warn("indexer request failed", "path", path, "error", err, "duration", time.Since(start))
		return parseError(err)
	}
	c.logger.Debug("indexer request", "path", path, "duration", time.Since(start))
	return nil
}

// parseError maps indexer error bodies onto application errors
func parseError(err error) error {
	var apiErr *httpclient.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(apiErr.Body, &body)

	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", body.Message, apperrors.ErrMarketNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", body.Message, apperrors.ErrInvalidInput)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: %w", apperrors.ErrIndexerUnavailable, err)
	}
	return err
}

func filterParams(filter core.SubaccountFilter) map[string]string {
	params := map[string]string{}
	if filter.MarketID != "" {
		params["marketId"] = filter.MarketID
	}
	if filter.SubaccountID != "" {
		params["subaccountId"] = filter.SubaccountID
	}
	return params
}

func (c *IndexerClient) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	var resp struct {
		Markets []core.Market `json:"markets"`
	}
	if err := c.get(ctx, pathMarkets, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Markets, nil
}

func (c *IndexerClient) FetchMarket(ctx context.Context, marketID string) (*core.Market, error) {
	var resp struct {
		Market *core.Market `json:"market"`
	}
	if err := c.get(ctx, pathMarkets+"/"+url.PathEscape(marketID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Market == nil {
		return nil, fmt.Errorf("%s: %w", marketID, apperrors.ErrMarketNotFound)
	}
	return resp.Market, nil
}

func (c *IndexerClient) FetchOrderbook(ctx context.Context, marketID string) (*core.Orderbook, error) {
	var resp struct {
		Orderbook core.Orderbook `json:"orderbook"`
	}
	if err := c.get(ctx, pathOrderbook+url.PathEscape(marketID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Orderbook, nil
}

func (c *IndexerClient) FetchMarketSummary(ctx context.Context, marketID string) (*core.MarketSummary, error) {
	var summary core.MarketSummary
	if err := c.get(ctx, pathSummary+"/"+url.PathEscape(marketID), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *IndexerClient) FetchMarketsSummary(ctx context.Context) ([]core.MarketSummary, error) {
	var resp struct {
		Summaries []core.MarketSummary `json:"summaries"`
	}
	if err := c.get(ctx, pathSummary, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summaries, nil
}

func (c *IndexerClient) FetchTrades(ctx context.Context, filter core.SubaccountFilter) ([]core.Trade, error) {
	var resp struct {
		Trades []core.Trade `json:"trades"`
	}
	if err := c.get(ctx, pathTrades, filterParams(filter), &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}

func (c *IndexerClient) FetchPositions(ctx context.Context, filter core.SubaccountFilter) ([]core.Position, error) {
	var resp struct {
		Positions []core.Position `json:"positions"`
	}
	if err := c.get(ctx, pathPositions, filterParams(filter), &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

func (c *IndexerClient) FetchOrders(ctx context.Context, filter core.SubaccountFilter) ([]core.Order, error) {
	var resp struct {
		Orders []core.Order `json:"orders"`
	}
	if err := c.get(ctx, pathOrders, filterParams(filter), &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// FetchOraclePrice returns the raw oracle price string, empty when the indexer has none
func (c *IndexerClient) FetchOraclePrice(ctx context.Context, query core.OracleQuery) (string, error) {
	var resp struct {
		Price string `json:"price"`
	}
	params := map[string]string{
		"baseSymbol":  query.BaseSymbol,
		"quoteSymbol": query.QuoteSymbol,
		"oracleType":  query.OracleType,
	}
	if err := c.get(ctx, pathOraclePrice, params, &resp); err != nil {
		return "", err
	}
	return resp.Price, nil
}

func (c *IndexerClient) FetchGranteeGrants(ctx context.Context, address string) ([]core.Grant, error) {
	return c.fetchGrants(ctx, map[string]string{"grantee": address})
}

func (c *IndexerClient) FetchGranterGrants(ctx context.Context, address string) ([]core.Grant, error) {
	return c.fetchGrants(ctx, map[string]string{"granter": address})
}

func (c *IndexerClient) fetchGrants(ctx context.Context, params map[string]string) ([]core.Grant, error) {
	var resp struct {
		Grants []core.Grant `json:"grants"`
	}
	if err := c.get(ctx, pathGrants, params, &resp); err != nil {
		return nil, err
	}
	return resp.Grants, nil
}

func (c *IndexerClient) FetchSubaccountBalances(ctx context.Context, subaccountID string) ([]core.Balance, error) {
	var resp struct {
		Balances []core.Balance `json:"balances"`
	}
	if err := c.get(ctx, pathSubaccounts+url.PathEscape(subaccountID)+"/balances", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

func (c *IndexerClient) FetchGasPrice(ctx context.Context) (decimal.Decimal, error) {
	var resp struct {
		GasPrice decimal.Decimal `json:"gasPrice"`
	}
	if err := c.get(ctx, pathGasPrice, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.GasPrice, nil
}
