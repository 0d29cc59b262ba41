package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"dex_trader/internal/core"
	"dex_trader/pkg/websocket"
)

// Indexer stream channels
const (
	ChannelOrderbook    = "derivative.orderbook"
	ChannelTrades       = "derivative.trades"
	ChannelOrders       = "derivative.orders"
	ChannelPositions    = "derivative.positions"
	ChannelOraclePrices = "oracle.prices"
)

// Request is the subscription message sent after every (re)connect
type Request struct {
	Op      string            `json:"op"`
	Channel string            `json:"channel"`
	Args    map[string]string `json:"args,omitempty"`
}

// Event is an indexer stream message
type Event struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Streamer opens one indexer WebSocket connection per stream
type Streamer struct {
	url       string
	apiHeader string
	apiKey    string
	logger    core.ILogger
}

var _ core.IStreamer = (*Streamer)(nil)

// NewStreamer creates a streamer for the indexer WebSocket endpoint.
// apiKey is sent in the apiHeader handshake header when set.
func NewStreamer(url, apiHeader, apiKey string, logger core.ILogger) *Streamer {
	return &Streamer{
		url:       url,
		apiHeader: apiHeader,
		apiKey:    apiKey,
		logger:    logger.WithField("component", "indexer_stream"),
	}
}

func subscribe[T any](s *Streamer, ctx context.Context, channel string, args map[string]string, callback func(T)) error {
	if callback == nil {
		return fmt.Errorf("%s: callback is required", channel)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := s.logger.WithField("channel", channel)
	client := websocket.NewClient(s.url, func(message []byte) {
		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Error("Failed to unmarshal stream message", "error", err)
			return
		}
		if event.Channel != channel || len(event.Data) == 0 {
			return
		}

		var update T
		if err := json.Unmarshal(event.Data, &update); err != nil {
			logger.Error("Failed to decode stream update", "error", err)
			return
		}
		callback(update)
	}, logger)

	if s.apiKey != "" {
		client.SetHeader(s.apiHeader, s.apiKey)
	}
	client.SetOnConnected(func() error {
		return client.Send(Request{Op: "subscribe", Channel: channel, Args: args})
	})

	go func() {
		client.Start()
		<-ctx.Done()
		client.Stop()
	}()

	return nil
}

func filterArgs(filter core.SubaccountFilter) map[string]string {
	args := map[string]string{}
	if filter.MarketID != "" {
		args["marketId"] = filter.MarketID
	}
	if filter.SubaccountID != "" {
		args["subaccountId"] = filter.SubaccountID
	}
	return args
}

func (s *Streamer) StreamOrderbook(ctx context.Context, marketID string, callback func(core.OrderbookUpdate)) error {
	return subscribe(s, ctx, ChannelOrderbook, map[string]string{"marketId": marketID}, callback)
}

// StreamTrades streams taker trades of the filtered market or subaccount
func (s *Streamer) StreamTrades(ctx context.Context, filter core.SubaccountFilter, callback func(core.TradeUpdate)) error {
	args := filterArgs(filter)
	args["executionSide"] = "taker"
	return subscribe(s, ctx, ChannelTrades, args, callback)
}

func (s *Streamer) StreamOrders(ctx context.Context, filter core.SubaccountFilter, callback func(core.OrderUpdate)) error {
	return subscribe(s, ctx, ChannelOrders, filterArgs(filter), callback)
}

func (s *Streamer) StreamPositions(ctx context.Context, filter core.SubaccountFilter, callback func(core.PositionUpdate)) error {
	return subscribe(s, ctx, ChannelPositions, filterArgs(filter), callback)
}

func (s *Streamer) StreamOraclePrices(ctx context.Context, query core.OracleQuery, callback func(core.PriceUpdate)) error {
	args := map[string]string{
		"baseSymbol":  query.BaseSymbol,
		"quoteSymbol": query.QuoteSymbol,
		"oracleType":  query.OracleType,
	}
	return subscribe(s, ctx, ChannelOraclePrices, args, callback)
}
