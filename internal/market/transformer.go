// Package market turns indexer markets and summaries into UI-ready records
package market

import (
	"strings"

	"dex_trader/internal/core"
	"dex_trader/pkg/tradingutils"
)

const peggyPrefix = "peggy"

// Slug derives the URL slug of a ticker, e.g. "BTC/USDT PERP" -> "btc-usdt-perp".
// Only the first slash and the first space are replaced.
func Slug(ticker string) string {
	s := strings.Replace(ticker, "/", "-", 1)
	s = strings.Replace(s, " ", "-", 1)
	return strings.ToLower(s)
}

// TokenAddress returns the ERC20 contract address behind a peggy denom, or the denom itself
func TokenAddress(denom string) string {
	if strings.HasPrefix(denom, peggyPrefix+"0x") {
		return strings.TrimPrefix(denom, peggyPrefix)
	}
	return denom
}

// ToUIMarket fills the slug, display decimals and token addresses of m
func ToUIMarket(m core.Market) core.Market {
	var baseDecimals, quoteDecimals int32
	if m.BaseToken != nil {
		token := *m.BaseToken
		token.Denom = m.BaseDenom
		token.Address = TokenAddress(m.BaseDenom)
		m.BaseToken = &token
		baseDecimals = token.Decimals
	}
	if m.QuoteToken != nil {
		token := *m.QuoteToken
		token.Denom = m.QuoteDenom
		token.Address = TokenAddress(m.QuoteDenom)
		m.QuoteToken = &token
		quoteDecimals = token.Decimals
	}

	m.Slug = Slug(m.Ticker)
	if m.Type == core.MarketTypeSpot {
		m.PriceDecimals = tradingutils.DecimalsFromTickSize(
			tradingutils.ToWei(m.MinPriceTickSize, baseDecimals-quoteDecimals))
		m.QuantityDecimals = tradingutils.DecimalsFromTickSize(
			tradingutils.ToBase(m.MinQuantityTickSize, tradingutils.DefaultDecimals))
		return m
	}

	// Derivative quantities are already human scale
	m.PriceDecimals = tradingutils.DecimalsFromTickSize(
		tradingutils.ToBase(m.MinPriceTickSize, quoteDecimals))
	m.QuantityDecimals = tradingutils.DecimalsFromTickSize(m.MinQuantityTickSize)
	return m
}

// ToUIMarkets transforms every market in order
func ToUIMarkets(markets []core.Market) []core.Market {
	out := make([]core.Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, ToUIMarket(m))
	}
	return out
}

// FilterMarketsWithQuoteToken drops markets the indexer returned without quote token metadata
func FilterMarketsWithQuoteToken(markets []core.Market) []core.Market {
	out := make([]core.Market, 0, len(markets))
	for _, m := range markets {
		if m.QuoteToken != nil {
			out = append(out, m)
		}
	}
	return out
}

// MergeSummaries refreshes old summaries with fresh ones.
// Markets missing from fresh are dropped. A fresh summary with a zero price
// is ignored in favor of the old one. LastPrice always carries the old price.
// With no old summaries, fresh is returned as is.
func MergeSummaries(old, fresh []core.MarketSummary) []core.MarketSummary {
	if old == nil {
		return fresh
	}

	byID := make(map[string]core.MarketSummary, len(fresh))
	for _, s := range fresh {
		byID[s.MarketID] = s
	}

	merged := make([]core.MarketSummary, 0, len(old))
	for _, prev := range old {
		next, ok := byID[prev.MarketID]
		if !ok {
			continue
		}
		summary := next
		if next.Price.IsZero() {
			summary = prev
		}
		summary.LastPrice = prev.Price
		merged = append(merged, summary)
	}
	return merged
}
