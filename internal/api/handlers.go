package api

import (
	"fmt"
	"net/http"
	"strings"

	"dex_trader/internal/core"
	"dex_trader/internal/service"
	"dex_trader/internal/trading/order"
	"dex_trader/internal/trading/orderbook"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/validation"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

func parseSide(s string) (core.OrderSide, error) {
	switch core.OrderSide(strings.ToLower(s)) {
	case core.SideBuy:
		return core.SideBuy, nil
	case core.SideSell:
		return core.SideSell, nil
	}
	return "", fmt.Errorf("side %q: %w", s, apperrors.ErrInvalidInput)
}

// firstInvalid returns the first failed rule
func firstInvalid(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.svc.FetchMarkets(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, markets)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Market(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, m)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.FetchMarketSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, summary)
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	book, err := s.svc.FetchOrderbook(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, book)
}

func (s *Server) handleGetMarkPrice(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Market(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, err)
		return
	}
	price, err := s.svc.FetchMarkPrice(r.Context(), m)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, map[string]string{"markPrice": price})
}

func (s *Server) handleGetPriceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.FetchPriceInfo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, info)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		respondError(w, http.StatusServiceUnavailable, "monitor disabled", "")
		return
	}
	respondJSON(w, s.state.State())
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := validation.GreaterThan(req.Amount, decimal.Zero); err != nil {
		s.respondErr(w, err)
		return
	}

	est, err := s.svc.EstimateMarketOrder(r.Context(), service.MarketOrderRequest{
		MarketID: mux.Vars(r)["id"],
		Side:     side,
		Amount:   req.Amount,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, est)
}

func (s *Server) handleMaxFillable(w http.ResponseWriter, r *http.Request) {
	var req MaxFillableRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := firstInvalid(
		validation.MinValue(req.AvailableMargin, decimal.Zero),
		validation.MinValue(req.Slippage, decimal.Zero),
		validation.MinValue(req.Percent, decimal.Zero),
	); err != nil {
		s.respondErr(w, err)
		return
	}

	budget := orderbook.NewFillBudget(req.AvailableMargin, req.Slippage)
	if budget.Slippage.IsZero() {
		budget.Slippage = decimal.NewFromInt(1)
	}
	if req.Leverage.IsPositive() {
		budget.Leverage = req.Leverage
	}
	if req.Percent.IsPositive() {
		budget.Percent = req.Percent
	}

	qty, err := s.svc.MaxFillableSize(r.Context(), mux.Vars(r)["id"], side, budget)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, MaxFillableResponse{Quantity: qty})
}

func (s *Server) handleLiquidation(w http.ResponseWriter, r *http.Request) {
	var req LiquidationRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	orderType, err := order.ParseOrderType(req.OrderType)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := firstInvalid(
		validation.MinValue(req.Price, decimal.Zero),
		validation.MinValue(req.Quantity, decimal.Zero),
		validation.MinValue(req.Margin, decimal.Zero),
	); err != nil {
		s.respondErr(w, err)
		return
	}

	price, err := s.svc.LiquidationPrice(r.Context(), service.LiquidationRequest{
		MarketID:  mux.Vars(r)["id"],
		OrderType: orderType,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Margin:    req.Margin,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, LiquidationResponse{LiquidationPrice: price})
}

func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	var req MarginRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if err := firstInvalid(
		validation.MinValue(req.Quantity, decimal.Zero),
		validation.MinValue(req.Price, decimal.Zero),
	); err != nil {
		s.respondErr(w, err)
		return
	}

	m, err := s.svc.RequiredMargin(r.Context(), req.Quantity, req.Price, req.Leverage)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, MarginResponse{Margin: m})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		respondJSON(w, map[string]string{"status": "ok"})
		return
	}
	s.health.Handler().ServeHTTP(w, r)
}
