package api

import (
	"github.com/shopspring/decimal"
)

// EstimateRequest is the body of POST /markets/{id}/estimate
type EstimateRequest struct {
	Side   string          `json:"side"`
	Amount decimal.Decimal `json:"amount"`
}

// MaxFillableRequest is the body of POST /markets/{id}/max-fillable
type MaxFillableRequest struct {
	Side            string          `json:"side"`
	AvailableMargin decimal.Decimal `json:"availableMargin"`
	Slippage        decimal.Decimal `json:"slippage"`
	Leverage        decimal.Decimal `json:"leverage"`
	Percent         decimal.Decimal `json:"percent"`
}

// MaxFillableResponse carries the largest fillable quantity
type MaxFillableResponse struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// LiquidationRequest is the body of POST /markets/{id}/liquidation
type LiquidationRequest struct {
	OrderType string          `json:"orderType"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Margin    decimal.Decimal `json:"margin"`
}

// LiquidationResponse carries the estimated liquidation price
type LiquidationResponse struct {
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
}

// MarginRequest is the body of POST /margin
type MarginRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Leverage decimal.Decimal `json:"leverage"`
}

// MarginResponse carries the required margin
type MarginResponse struct {
	Margin decimal.Decimal `json:"margin"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
