package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the risk direction of an order. Buy increases long exposure.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// MarketType distinguishes spot from derivative markets
type MarketType string

const (
	MarketTypeSpot       MarketType = "spot"
	MarketTypeDerivative MarketType = "derivative"
)

// PriceLevel is one rung of a one-sided order book, best price first.
// Price is in minor units of the quote token.
type PriceLevel struct {
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Orderbook is a snapshot of both sides of a market
type Orderbook struct {
	Buys  []PriceLevel `json:"buys"`
	Sells []PriceLevel `json:"sells"`
}

// Levels returns the side of the book that an order of the given side executes against
func (o Orderbook) Levels(side OrderSide) []PriceLevel {
	if side == SideBuy {
		return o.Sells
	}
	return o.Buys
}

// Token is the metadata of a denom
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Icon     string `json:"logo"`
	Decimals int32  `json:"decimals"`
	Address  string `json:"address"`
	Denom    string `json:"denom"`
}

// MarketDecimals is the part of a market the estimators need
type MarketDecimals struct {
	QuoteDecimals    int32
	QuantityDecimals int32
	PriceDecimals    int32
	TakerFeeRate     decimal.Decimal
}

// Market is an indexer market enriched with UI fields (slug and display decimals)
type Market struct {
	MarketID               string          `json:"marketId"`
	Ticker                 string          `json:"ticker"`
	Type                   MarketType      `json:"type"`
	BaseDenom              string          `json:"baseDenom"`
	QuoteDenom             string          `json:"quoteDenom"`
	BaseToken              *Token          `json:"baseToken,omitempty"`
	QuoteToken             *Token          `json:"quoteToken,omitempty"`
	MinPriceTickSize       decimal.Decimal `json:"minPriceTickSize"`
	MinQuantityTickSize    decimal.Decimal `json:"minQuantityTickSize"`
	MakerFeeRate           decimal.Decimal `json:"makerFeeRate"`
	TakerFeeRate           decimal.Decimal `json:"takerFeeRate"`
	InitialMarginRatio     decimal.Decimal `json:"initialMarginRatio"`
	MaintenanceMarginRatio decimal.Decimal `json:"maintenanceMarginRatio"`
	OracleBase             string          `json:"oracleBase"`
	OracleQuote            string          `json:"oracleQuote"`
	OracleType             string          `json:"oracleType"`
	OracleScaleFactor      int32           `json:"oracleScaleFactor"`
	IsPerpetual            bool            `json:"isPerpetual"`

	Slug             string `json:"slug"`
	PriceDecimals    int32  `json:"priceDecimals"`
	QuantityDecimals int32  `json:"quantityDecimals"`
}

// Decimals returns the decimal configuration used by the estimators
func (m Market) Decimals() MarketDecimals {
	var quoteDecimals int32
	if m.QuoteToken != nil {
		quoteDecimals = m.QuoteToken.Decimals
	}
	return MarketDecimals{
		QuoteDecimals:    quoteDecimals,
		QuantityDecimals: m.QuantityDecimals,
		PriceDecimals:    m.PriceDecimals,
		TakerFeeRate:     m.TakerFeeRate,
	}
}

// MarketSummary is the 24h summary of a market
type MarketSummary struct {
	MarketID  string          `json:"marketId"`
	Price     decimal.Decimal `json:"price"`
	LastPrice decimal.Decimal `json:"lastPrice"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Change    decimal.Decimal `json:"change"`
}

// Trade is an executed trade, prices in minor units
type Trade struct {
	OrderHash         string          `json:"orderHash"`
	MarketID          string          `json:"marketId"`
	SubaccountID      string          `json:"subaccountId"`
	TradeDirection    string          `json:"tradeDirection"`
	ExecutionSide     string          `json:"executionSide"`
	ExecutionPrice    decimal.Decimal `json:"executionPrice"`
	ExecutionQuantity decimal.Decimal `json:"executionQuantity"`
	Fee               decimal.Decimal `json:"fee"`
	ExecutedAt        int64           `json:"executedAt"`
}

// Position is an open derivative position
type Position struct {
	MarketID         string          `json:"marketId"`
	SubaccountID     string          `json:"subaccountId"`
	Ticker           string          `json:"ticker"`
	Direction        string          `json:"direction"`
	Quantity         decimal.Decimal `json:"quantity"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	Margin           decimal.Decimal `json:"margin"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	UpdatedAt        int64           `json:"updatedAt"`
}

// Order is a resting order
type Order struct {
	OrderHash        string          `json:"orderHash"`
	MarketID         string          `json:"marketId"`
	SubaccountID     string          `json:"subaccountId"`
	OrderSide        string          `json:"orderSide"`
	State            string          `json:"state"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnfilledQuantity decimal.Decimal `json:"unfilledQuantity"`
	Margin           decimal.Decimal `json:"margin"`
	TriggerPrice     decimal.Decimal `json:"triggerPrice"`
	IsReduceOnly     bool            `json:"isReduceOnly"`
	CreatedAt        int64           `json:"createdAt"`
}

// Balance is a subaccount balance of a single denom
type Balance struct {
	Denom            string          `json:"denom"`
	TotalBalance     decimal.Decimal `json:"totalBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// Grant is an authz grant between two addresses
type Grant struct {
	Granter       string    `json:"granter"`
	Grantee       string    `json:"grantee"`
	Authorization string    `json:"authorization"`
	Expiration    time.Time `json:"expiration"`
}

// ExecutionEstimate is the result of walking a book for a target amount
type ExecutionEstimate struct {
	WorstPrice     decimal.Decimal `json:"worstPrice"`
	AveragePrice   decimal.Decimal `json:"averagePrice"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
}

// SubaccountFilter scopes account queries and streams
type SubaccountFilter struct {
	MarketID     string
	SubaccountID string
}

// OracleQuery identifies an oracle price feed
type OracleQuery struct {
	BaseSymbol  string
	QuoteSymbol string
	OracleType  string
}

// OrderbookUpdate is a streamed orderbook change
type OrderbookUpdate struct {
	MarketID      string    `json:"marketId"`
	Orderbook     Orderbook `json:"orderbook"`
	OperationType string    `json:"operationType"`
	Timestamp     int64     `json:"timestamp"`
}

// TradeUpdate is a streamed trade
type TradeUpdate struct {
	Trade         Trade  `json:"trade"`
	OperationType string `json:"operationType"`
	Timestamp     int64  `json:"timestamp"`
}

// OrderUpdate is a streamed order change
type OrderUpdate struct {
	Order         Order  `json:"order"`
	OperationType string `json:"operationType"`
	Timestamp     int64  `json:"timestamp"`
}

// PositionUpdate is a streamed position change. Position may be nil on heartbeats.
type PositionUpdate struct {
	Position  *Position `json:"position"`
	Timestamp int64     `json:"timestamp"`
}

// PriceUpdate is a streamed oracle price
type PriceUpdate struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}
