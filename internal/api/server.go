// Package api serves market data and estimator endpoints over REST
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dex_trader/internal/auth"
	"dex_trader/internal/core"
	"dex_trader/internal/infrastructure/health"
	"dex_trader/internal/service"
	"dex_trader/internal/store"
	apperrors "dex_trader/pkg/errors"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// StateProvider returns the monitored application state
type StateProvider interface {
	State() *store.AppState
}

// Server handles REST requests
type Server struct {
	svc            *service.DerivativesService
	state          StateProvider
	health         *health.HealthManager
	validator      *auth.APIKeyValidator
	allowedOrigins []string
	router         *mux.Router
	logger         core.ILogger
	srv            *http.Server
}

// NewServer wires the routes. state, hm and validator may be nil.
func NewServer(
	svc *service.DerivativesService,
	state StateProvider,
	hm *health.HealthManager,
	validator *auth.APIKeyValidator,
	allowedOrigins []string,
	logger core.ILogger,
) *Server {
	s := &Server{
		svc:            svc,
		state:          state,
		health:         hm,
		validator:      validator,
		allowedOrigins: allowedOrigins,
		router:         mux.NewRouter(),
		logger:         logger.WithField("component", "api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/markets", s.handleGetMarkets).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}", s.handleGetMarket).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}/summary", s.handleGetSummary).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}/orderbook", s.handleGetOrderbook).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}/mark-price", s.handleGetMarkPrice).Methods(http.MethodGet)
	api.HandleFunc("/markets/{id}/price", s.handleGetPriceInfo).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)

	// Estimators are guarded by API keys when configured
	api.Handle("/markets/{id}/estimate", s.guard(s.handleEstimate)).Methods(http.MethodPost)
	api.Handle("/markets/{id}/max-fillable", s.guard(s.handleMaxFillable)).Methods(http.MethodPost)
	api.Handle("/markets/{id}/liquidation", s.guard(s.handleLiquidation)).Methods(http.MethodPost)
	api.Handle("/margin", s.guard(s.handleMargin)).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) guard(h http.HandlerFunc) http.Handler {
	if s.validator == nil {
		return h
	}
	return s.validator.Middleware(h)
}

// Handler returns the router wrapped in CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", auth.HeaderAPIKey},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("API request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondErr maps domain errors onto HTTP statuses
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrMarketNotFound):
		respondError(w, http.StatusNotFound, "market not found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrInvalidLeverage),
		errors.Is(err, apperrors.ErrUnknownOrderType):
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, apperrors.ErrUndefinedResult),
		errors.Is(err, apperrors.ErrNoLiquidity):
		respondError(w, http.StatusUnprocessableEntity, "no result", err.Error())
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		respondError(w, http.StatusTooManyRequests, "rate limited", err.Error())
	default:
		s.logger.Error("Indexer request failed", "error", err)
		respondError(w, http.StatusBadGateway, "indexer error", err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed body: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return nil
}
