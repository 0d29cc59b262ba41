// Package stream manages the lifetime of indexer streams
package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/telemetry"

	"github.com/google/uuid"
)

// Type identifies a stream slot. At most one stream of each type runs at a time.
type Type string

const (
	TypeOrderbook           Type = "orderbook"
	TypeTrades              Type = "trades"
	TypeSubaccountTrades    Type = "subaccount_trades"
	TypeSubaccountOrders    Type = "subaccount_orders"
	TypeSubaccountPositions Type = "subaccount_positions"
	TypeOraclePrices        Type = "oracle_prices"
	TypeBalances            Type = "balances"
)

// MarketTypes are the streams torn down when leaving a market
var MarketTypes = []Type{
	TypeOrderbook,
	TypeSubaccountOrders,
	TypeSubaccountTrades,
	TypeSubaccountPositions,
	TypeTrades,
	TypeBalances,
	TypeOraclePrices,
}

// StartFunc opens a stream that lives until ctx is canceled
type StartFunc func(ctx context.Context) error

// Subscription is a handle on a running stream
type Subscription struct {
	ID     string
	Type   Type
	cancel context.CancelFunc
}

// Registry tracks running streams by type
type Registry struct {
	logger core.ILogger
	subs   map[Type]*Subscription
	mu     sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger core.ILogger) *Registry {
	return &Registry{
		logger: logger.WithField("component", "stream_registry"),
		subs:   make(map[Type]*Subscription),
	}
}

// StartIfAbsent starts a stream of type t unless one is already running.
// It reports whether a new stream was started.
func (r *Registry) StartIfAbsent(ctx context.Context, t Type, start StartFunc) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[t]; ok {
		return false, nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	if err := start(streamCtx); err != nil {
		cancel()
		return false, fmt.Errorf("failed to start %s stream: %w", t, err)
	}

	sub := &Subscription{ID: uuid.NewString(), Type: t, cancel: cancel}
	r.subs[t] = sub
	telemetry.GetGlobalMetrics().SetActiveStreams(string(t), 1)
	r.logger.Info("Stream started", "type", string(t), "id", sub.ID)
	return true, nil
}

// Start starts a stream of type t and fails with ErrStreamExists when one is running
func (r *Registry) Start(ctx context.Context, t Type, start StartFunc) error {
	started, err := r.StartIfAbsent(ctx, t, start)
	if err != nil {
		return err
	}
	if !started {
		return fmt.Errorf("%s: %w", t, apperrors.ErrStreamExists)
	}
	return nil
}

// CancelIfExists stops the stream of type t, reporting whether one was running
func (r *Registry) CancelIfExists(t Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelLocked(t)
}

func (r *Registry) cancelLocked(t Type) bool {
	sub, ok := r.subs[t]
	if !ok {
		return false
	}
	sub.cancel()
	delete(r.subs, t)
	telemetry.GetGlobalMetrics().SetActiveStreams(string(t), 0)
	r.logger.Info("Stream canceled", "type", string(t), "id", sub.ID)
	return true
}

// Cancel stops every listed stream type that is running
func (r *Registry) Cancel(types ...Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.cancelLocked(t)
	}
}

// CancelAll stops every running stream
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t := range r.subs {
		r.cancelLocked(t)
	}
}

// Exists reports whether a stream of type t is running
func (r *Registry) Exists(t Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[t]
	return ok
}

// Subscription returns the handle of the running stream of type t
func (r *Registry) Subscription(t Type) (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[t]
	if !ok {
		return Subscription{}, false
	}
	return *sub, true
}

// Active lists the running stream types in name order
func (r *Registry) Active() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.subs))
	for t := range r.subs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
