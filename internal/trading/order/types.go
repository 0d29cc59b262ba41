// Package order maps UI order types onto the exchange protocol vocabulary
package order

import (
	"fmt"
	"strings"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"
)

// OrderType is the order type selected in the trading form
type OrderType string

const (
	TypeUnspecified OrderType = "unspecified"
	TypeBuy         OrderType = "buy"
	TypeSell        OrderType = "sell"
	TypeStopBuy     OrderType = "stop_buy"
	TypeStopSell    OrderType = "stop_sell"
	TypeTakeBuy     OrderType = "take_buy"
	TypeTakeSell    OrderType = "take_sell"
	TypeBuyPO       OrderType = "buy_po"
	TypeSellPO      OrderType = "sell_po"
)

// ProtocolOrderType is the order type understood by the exchange module
type ProtocolOrderType string

const (
	ProtocolUnspecified ProtocolOrderType = "UNSPECIFIED"
	ProtocolBuy         ProtocolOrderType = "BUY"
	ProtocolSell        ProtocolOrderType = "SELL"
	ProtocolStopBuy     ProtocolOrderType = "STOP_BUY"
	ProtocolStopSell    ProtocolOrderType = "STOP_SELL"
	ProtocolTakeBuy     ProtocolOrderType = "TAKE_BUY"
	ProtocolTakeSell    ProtocolOrderType = "TAKE_SELL"
	ProtocolBuyPO       ProtocolOrderType = "BUY_PO"
	ProtocolSellPO      ProtocolOrderType = "SELL_PO"
)

var protocolTypes = map[OrderType]ProtocolOrderType{
	TypeUnspecified: ProtocolUnspecified,
	TypeBuy:         ProtocolBuy,
	TypeSell:        ProtocolSell,
	TypeStopBuy:     ProtocolStopBuy,
	TypeStopSell:    ProtocolStopSell,
	TypeTakeBuy:     ProtocolTakeBuy,
	TypeTakeSell:    ProtocolTakeSell,
	TypeBuyPO:       ProtocolBuyPO,
	TypeSellPO:      ProtocolSellPO,
}

// ToProtocolOrderType maps t to its protocol value as the trading forms do.
// Only the plain, stop-buy and take types are mapped; everything else,
// stop_sell and the post-only types included, falls back to BUY.
func ToProtocolOrderType(t OrderType) ProtocolOrderType {
	switch t {
	case TypeUnspecified, TypeBuy, TypeSell, TypeStopBuy, TypeTakeBuy, TypeTakeSell:
		return protocolTypes[t]
	default:
		return ProtocolBuy
	}
}

// ToProtocolOrderTypeStrict is ToProtocolOrderType without the BUY fallback
func ToProtocolOrderTypeStrict(t OrderType) (ProtocolOrderType, error) {
	p, ok := protocolTypes[t]
	if !ok {
		return "", fmt.Errorf("%q: %w", t, apperrors.ErrUnknownOrderType)
	}
	return p, nil
}

// ParseOrderType accepts either vocabulary, case-insensitively
func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := protocolTypes[t]; !ok {
		return "", fmt.Errorf("%q: %w", s, apperrors.ErrUnknownOrderType)
	}
	return t, nil
}

// Side returns the risk direction of t. Unspecified is treated as a buy.
func Side(t OrderType) core.OrderSide {
	switch t {
	case TypeSell, TypeStopSell, TypeTakeSell, TypeSellPO:
		return core.SideSell
	default:
		return core.SideBuy
	}
}

// IsPostOnly reports whether t may only rest on the book
func IsPostOnly(t OrderType) bool {
	return t == TypeBuyPO || t == TypeSellPO
}

// IsConditional reports whether t carries a trigger price
func IsConditional(t OrderType) bool {
	switch t {
	case TypeStopBuy, TypeStopSell, TypeTakeBuy, TypeTakeSell:
		return true
	}
	return false
}
