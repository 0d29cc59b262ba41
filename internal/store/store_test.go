package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dex_trader/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *AppState {
	return &AppState{
		GasPrice: decimal.RequireFromString("160000000"),
		Summaries: []core.MarketSummary{
			{MarketID: "0xbtc", Price: decimal.RequireFromString("30000.5"), LastPrice: decimal.RequireFromString("30000")},
		},
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestStores(t *testing.T) {
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	stores := map[string]SnapshotStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			loaded, err := s.LoadState(ctx)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			require.NoError(t, s.SaveState(ctx, sampleState()))

			next := sampleState()
			next.GasPrice = decimal.RequireFromString("170000000")
			require.NoError(t, s.SaveState(ctx, next))

			loaded, err = s.LoadState(ctx)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.True(t, loaded.GasPrice.Equal(next.GasPrice))
			require.Len(t, loaded.Summaries, 1)
			assert.Equal(t, "0xbtc", loaded.Summaries[0].MarketID)
			assert.True(t, loaded.Summaries[0].Price.Equal(decimal.RequireFromString("30000.5")))
			assert.True(t, loaded.UpdatedAt.Equal(next.UpdatedAt))
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	state := sampleState()
	require.NoError(t, s.SaveState(context.Background(), state))

	state.Summaries[0].MarketID = "mutated"
	loaded, err := s.LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xbtc", loaded.Summaries[0].MarketID)
}

func TestSQLiteStore_DetectsCorruption(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, sampleState()))
	_, err = s.db.ExecContext(ctx, `UPDATE state SET data = '{"gasPrice":"1"}' WHERE id = 1`)
	require.NoError(t, err)

	_, err = s.LoadState(ctx)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveState(ctx, sampleState()))
	require.NoError(t, s.Close())

	s, err = New("sqlite", path)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Summaries, 1)
}
