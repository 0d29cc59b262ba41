package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"dex_trader/internal/core"
	"dex_trader/internal/mock"
	"dex_trader/internal/service"
	"dex_trader/internal/store"
	"dex_trader/internal/stream"
	"dex_trader/pkg/concurrency"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/logging"
	"dex_trader/pkg/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Broadcast(msgType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, msgType)
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type fixture struct {
	monitor   *MarketMonitor
	indexer   *mock.MockIndexer
	store     *store.MemoryStore
	publisher *recordingPublisher
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T, marketIDs ...string) *fixture {
	t.Helper()
	logger := logging.NewNop()

	indexer := mock.NewMockIndexer()
	indexer.SetMarket(core.Market{MarketID: "0xbtc", Ticker: "BTC/USDT PERP"})
	indexer.SetMarket(core.Market{MarketID: "0xeth", Ticker: "ETH/USDT PERP"})
	indexer.SetSummary(core.MarketSummary{MarketID: "0xbtc", Price: d("30000")})
	indexer.SetSummary(core.MarketSummary{MarketID: "0xeth", Price: d("2000")})
	indexer.SetGasPrice(d("160000000"))

	svc := service.NewDerivativesService(indexer, indexer, stream.NewRegistry(logger), logger)
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "monitor", MaxWorkers: 2}, logger)
	t.Cleanup(pool.Stop)

	snapshots := store.NewMemoryStore()
	publisher := &recordingPublisher{}
	cfg := Config{
		GasPriceInterval: 20 * time.Millisecond,
		SummaryInterval:  20 * time.Millisecond,
		DefaultGasPrice:  d("500000000"),
		MarketIDs:        marketIDs,
		Retry:            retry.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}

	return &fixture{
		monitor:   NewMarketMonitor(svc, indexer, snapshots, pool, publisher, cfg, logger),
		indexer:   indexer,
		store:     snapshots,
		publisher: publisher,
	}
}

func TestMarketMonitor_RefreshGasPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	price := f.monitor.RefreshGasPrice(ctx)
	assert.True(t, price.Equal(d("160000000")))
	assert.True(t, f.monitor.State().GasPrice.Equal(d("160000000")))
	assert.Equal(t, 1, f.publisher.count(TopicGasPrice))

	saved, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.GasPrice.Equal(d("160000000")))
}

func TestMarketMonitor_GasPriceFallback(t *testing.T) {
	f := newFixture(t)
	f.indexer.SetError(apperrors.ErrIndexerUnavailable)

	price := f.monitor.RefreshGasPrice(context.Background())
	assert.True(t, price.Equal(d("500000000")))
	assert.Equal(t, 2, f.indexer.Calls("FetchGasPrice"), "transient failures are retried")
}

func TestMarketMonitor_RefreshSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.RefreshSummaries(ctx))
	state := f.monitor.State()
	require.Len(t, state.Summaries, 2)
	assert.Equal(t, "0xbtc", state.Summaries[0].MarketID)

	f.indexer.SetSummary(core.MarketSummary{MarketID: "0xbtc", Price: d("31000")})
	require.NoError(t, f.monitor.RefreshSummaries(ctx))

	state = f.monitor.State()
	require.Len(t, state.Summaries, 2)
	assert.True(t, state.Summaries[0].Price.Equal(d("31000")))
	assert.True(t, state.Summaries[0].LastPrice.Equal(d("30000")))
	assert.Equal(t, 2, f.publisher.count(TopicSummaries))
}

func TestMarketMonitor_SelectedMarkets(t *testing.T) {
	f := newFixture(t, "0xeth")

	require.NoError(t, f.monitor.RefreshSummaries(context.Background()))
	state := f.monitor.State()
	require.Len(t, state.Summaries, 1)
	assert.Equal(t, "0xeth", state.Summaries[0].MarketID)
	assert.Equal(t, 0, f.indexer.Calls("FetchMarketsSummary"))
}

func TestMarketMonitor_SelectedMarketMissing(t *testing.T) {
	f := newFixture(t, "0xeth", "0xmissing")

	err := f.monitor.RefreshSummaries(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrMarketNotFound)
	assert.Empty(t, f.monitor.State().Summaries)
}

func TestMarketMonitor_Restore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveState(ctx, &store.AppState{
		GasPrice:  d("1"),
		Summaries: []core.MarketSummary{{MarketID: "0xbtc", Price: d("29000")}},
	}))
	require.NoError(t, f.monitor.Restore(ctx))

	state := f.monitor.State()
	assert.True(t, state.GasPrice.Equal(d("1")))
	require.Len(t, state.Summaries, 1)

	// Restored summaries seed the merge
	require.NoError(t, f.monitor.RefreshSummaries(ctx))
	state = f.monitor.State()
	require.Len(t, state.Summaries, 1)
	assert.True(t, state.Summaries[0].LastPrice.Equal(d("29000")))
}

func TestMarketMonitor_Run(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return f.publisher.count(TopicSummaries) >= 2 && f.publisher.count(TopicGasPrice) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
