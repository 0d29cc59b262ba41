// Package monitor keeps the shared market context fresh
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dex_trader/internal/core"
	"dex_trader/internal/market"
	"dex_trader/internal/store"
	"dex_trader/pkg/concurrency"
	"dex_trader/pkg/retry"
	"dex_trader/pkg/telemetry"

	"github.com/shopspring/decimal"
)

// Message types published by the monitor
const (
	TopicGasPrice  = "gas_price"
	TopicSummaries = "summaries"
)

// SummarySource fetches market summaries
type SummarySource interface {
	FetchMarketSummary(ctx context.Context, marketID string) (core.MarketSummary, error)
	FetchMarketsSummary(ctx context.Context, old []core.MarketSummary) ([]core.MarketSummary, error)
}

// Publisher pushes state changes to live clients
type Publisher interface {
	Broadcast(msgType string, data interface{})
}

// Config controls the polling cadence
type Config struct {
	GasPriceInterval time.Duration
	SummaryInterval  time.Duration
	DefaultGasPrice  decimal.Decimal
	// MarketIDs limits summary polling to these markets; empty polls all
	MarketIDs []string
	Retry     retry.Policy
}

// MarketMonitor polls gas price and summaries into an AppState
type MarketMonitor struct {
	summaries SummarySource
	gas       core.IGasPriceProvider
	store     store.SnapshotStore
	pool      *concurrency.WorkerPool
	publisher Publisher
	cfg       Config
	logger    core.ILogger

	state *store.AppState
	mu    sync.RWMutex
}

func NewMarketMonitor(
	summaries SummarySource,
	gas core.IGasPriceProvider,
	snapshots store.SnapshotStore,
	pool *concurrency.WorkerPool,
	publisher Publisher,
	cfg Config,
	logger core.ILogger,
) *MarketMonitor {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	return &MarketMonitor{
		summaries: summaries,
		gas:       gas,
		store:     snapshots,
		pool:      pool,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.WithField("component", "market_monitor"),
		state:     &store.AppState{GasPrice: cfg.DefaultGasPrice},
	}
}

// State returns a copy of the current state
func (m *MarketMonitor) State() *store.AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Restore loads the last persisted snapshot, if any
func (m *MarketMonitor) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	saved, err := m.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}
	if saved == nil {
		return nil
	}

	m.mu.Lock()
	m.state = saved
	m.mu.Unlock()
	m.logger.Info("Restored state", "summaries", len(saved.Summaries), "updated_at", saved.UpdatedAt)
	return nil
}

// Run restores state, refreshes once and then polls until ctx is done
func (m *MarketMonitor) Run(ctx context.Context) error {
	if err := m.Restore(ctx); err != nil {
		m.logger.Warn("Starting from empty state", "error", err)
	}

	m.RefreshGasPrice(ctx)
	if err := m.RefreshSummaries(ctx); err != nil {
		m.logger.Error("Initial summary refresh failed", "error", err)
	}

	gasTicker := time.NewTicker(m.cfg.GasPriceInterval)
	defer gasTicker.Stop()
	summaryTicker := time.NewTicker(m.cfg.SummaryInterval)
	defer summaryTicker.Stop()

	m.logger.Info("Market monitor started",
		"gas_interval", m.cfg.GasPriceInterval,
		"summary_interval", m.cfg.SummaryInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Market monitor stopped")
			return ctx.Err()
		case <-gasTicker.C:
			m.RefreshGasPrice(ctx)
		case <-summaryTicker.C:
			if err := m.RefreshSummaries(ctx); err != nil {
				m.logger.Error("Summary refresh failed", "error", err)
			}
		}
	}
}

// RefreshGasPrice fetches the gas price, using the configured default when the indexer fails
func (m *MarketMonitor) RefreshGasPrice(ctx context.Context) decimal.Decimal {
	var price decimal.Decimal
	err := retry.Do(ctx, m.cfg.Retry, nil, func(ctx context.Context) error {
		p, err := m.gas.FetchGasPrice(ctx)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil || !price.IsPositive() {
		m.logger.Warn("Gas price unavailable, using default", "error", err, "default", m.cfg.DefaultGasPrice)
		price = m.cfg.DefaultGasPrice
	}

	m.mu.Lock()
	m.state.GasPrice = price
	m.state.UpdatedAt = time.Now()
	m.mu.Unlock()

	f, _ := price.Float64()
	telemetry.GetGlobalMetrics().SetGasPrice(f)
	m.persist(ctx)
	m.publish(TopicGasPrice, price.String())
	return price
}

// RefreshSummaries fetches summaries and merges them into the state
func (m *MarketMonitor) RefreshSummaries(ctx context.Context) error {
	old := m.State().Summaries

	var merged []core.MarketSummary
	var err error
	if len(m.cfg.MarketIDs) > 0 {
		merged, err = m.fetchSelected(ctx, old)
	} else {
		err = retry.Do(ctx, m.cfg.Retry, nil, func(ctx context.Context) error {
			var ferr error
			merged, ferr = m.summaries.FetchMarketsSummary(ctx, old)
			return ferr
		})
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Summaries = merged
	m.state.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.persist(ctx)
	m.publish(TopicSummaries, merged)
	return nil
}

// fetchSelected fetches the configured markets concurrently on the pool
func (m *MarketMonitor) fetchSelected(ctx context.Context, old []core.MarketSummary) ([]core.MarketSummary, error) {
	fresh := make([]core.MarketSummary, len(m.cfg.MarketIDs))
	tasks := make([]func(ctx context.Context) error, len(m.cfg.MarketIDs))
	for i, id := range m.cfg.MarketIDs {
		tasks[i] = func(ctx context.Context) error {
			return retry.Do(ctx, m.cfg.Retry, nil, func(ctx context.Context) error {
				s, err := m.summaries.FetchMarketSummary(ctx, id)
				if err != nil {
					return fmt.Errorf("market %s: %w", id, err)
				}
				fresh[i] = s
				return nil
			})
		}
	}

	if err := m.pool.RunAll(ctx, tasks...); err != nil {
		return nil, err
	}
	return market.MergeSummaries(old, fresh), nil
}

func (m *MarketMonitor) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveState(ctx, m.State()); err != nil {
		m.logger.Error("Failed to persist state", "error", err)
	}
}

func (m *MarketMonitor) publish(topic string, data interface{}) {
	if m.publisher != nil {
		m.publisher.Broadcast(topic, data)
	}
}
