// Package position keeps the subaccount's open derivative positions in sync with the indexer stream
package position

import (
	"context"
	"sync"

	"dex_trader/internal/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Store holds the open positions of one subaccount
type Store struct {
	logger core.ILogger

	positions []core.Position
	active    map[string]bool
	filter    string
	mu        sync.RWMutex

	updateCallbacks []func([]core.Position)
	callbackMu      sync.RWMutex
}

// NewStore creates an empty store. meter may be nil.
func NewStore(logger core.ILogger, meter metric.Meter) *Store {
	s := &Store{
		logger: logger.WithField("component", "position_store"),
		active: make(map[string]bool),
	}
	if meter != nil {
		s.registerMetrics(meter)
	}
	return s
}

func (s *Store) registerMetrics(meter metric.Meter) {
	_, _ = meter.Int64ObservableGauge("dex_trader_positions_open",
		metric.WithDescription("Number of open positions in the subaccount"),
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(s.Count()), metric.WithAttributes(attribute.String("filter", s.Filter())))
			return nil
		}))
}

// SetActiveMarkets replaces the set of tradable markets
func (s *Store) SetActiveMarkets(marketIDs []string) {
	active := make(map[string]bool, len(marketIDs))
	for _, id := range marketIDs {
		active[id] = true
	}
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

// SetFilter scopes the store to a single market; empty accepts all active markets
func (s *Store) SetFilter(marketID string) {
	s.mu.Lock()
	s.filter = marketID
	s.mu.Unlock()
}

// Filter returns the current market filter
func (s *Store) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Load replaces the positions with a fetched snapshot
func (s *Store) Load(positions []core.Position) {
	snapshot := make([]core.Position, len(positions))
	copy(snapshot, positions)

	s.mu.Lock()
	s.positions = snapshot
	s.mu.Unlock()
	s.notify(snapshot)
}

// Apply folds a streamed update into the store
func (s *Store) Apply(update core.PositionUpdate) {
	s.mu.Lock()
	before := len(s.positions)
	s.positions = ApplyUpdate(s.positions, update, s.filter, s.active)
	snapshot := s.positions
	s.mu.Unlock()

	if update.Position != nil {
		s.logger.Debug("Position update applied",
			"market_id", update.Position.MarketID,
			"quantity", update.Position.Quantity.String(),
			"before", before,
			"after", len(snapshot))
	}
	s.notify(snapshot)
}

// Positions returns a copy of the current positions
func (s *Store) Positions() []core.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Position, len(s.positions))
	copy(out, s.positions)
	return out
}

// Get returns the position of a market
func (s *Store) Get(marketID string) (core.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.positions {
		if p.MarketID == marketID {
			return p, true
		}
	}
	return core.Position{}, false
}

// Count returns the number of open positions
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// OnUpdate registers a callback invoked with the positions after every change
func (s *Store) OnUpdate(callback func([]core.Position)) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.updateCallbacks = append(s.updateCallbacks, callback)
}

func (s *Store) notify(positions []core.Position) {
	s.callbackMu.RLock()
	callbacks := s.updateCallbacks
	s.callbackMu.RUnlock()

	for _, cb := range callbacks {
		cb(positions)
	}
}

// Source starts a subaccount positions stream
type Source interface {
	StreamSubaccountPositions(ctx context.Context, filter core.SubaccountFilter, callback func(core.PositionUpdate)) error
}

// Watch streams position updates for filter into the store until ctx is canceled
func (s *Store) Watch(ctx context.Context, source Source, filter core.SubaccountFilter) error {
	s.SetFilter(filter.MarketID)
	return source.StreamSubaccountPositions(ctx, filter, s.Apply)
}
