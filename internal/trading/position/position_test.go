package position

import (
	"context"
	"sync"
	"testing"

	"dex_trader/internal/core"
	"dex_trader/pkg/logging"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(marketID, qty string) core.Position {
	return core.Position{MarketID: marketID, Quantity: decimal.RequireFromString(qty)}
}

func update(marketID, qty string) core.PositionUpdate {
	p := pos(marketID, qty)
	return core.PositionUpdate{Position: &p}
}

func marketIDs(positions []core.Position) []string {
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.MarketID)
	}
	return ids
}

func TestApplyUpdate(t *testing.T) {
	active := map[string]bool{"a": true, "b": true, "c": true}
	existing := []core.Position{pos("a", "1"), pos("b", "2")}

	tests := []struct {
		name    string
		update  core.PositionUpdate
		filter  string
		wantIDs []string
		check   func(t *testing.T, got []core.Position)
	}{
		{
			name:    "heartbeat without position",
			update:  core.PositionUpdate{},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "inactive market ignored",
			update:  update("z", "5"),
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "inactive market accepted with filter",
			update:  update("z", "5"),
			filter:  "z",
			wantIDs: []string{"z", "a", "b"},
		},
		{
			name:    "closed position removed",
			update:  update("a", "0"),
			wantIDs: []string{"b"},
		},
		{
			name:    "updated in place",
			update:  update("b", "7"),
			wantIDs: []string{"a", "b"},
			check: func(t *testing.T, got []core.Position) {
				assert.True(t, got[1].Quantity.Equal(decimal.NewFromInt(7)))
			},
		},
		{
			name:    "new position prepended",
			update:  update("c", "3"),
			wantIDs: []string{"c", "a", "b"},
		},
		{
			name:    "new zero position ignored",
			update:  update("c", "0"),
			wantIDs: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyUpdate(existing, tt.update, tt.filter, active)
			assert.Equal(t, tt.wantIDs, marketIDs(got))
			if tt.check != nil {
				tt.check(t, got)
			}
			assert.Equal(t, []string{"a", "b"}, marketIDs(existing), "input must not be mutated")
			assert.True(t, existing[1].Quantity.Equal(decimal.NewFromInt(2)))
		})
	}
}

type fakeSource struct {
	updates []core.PositionUpdate
	filter  core.SubaccountFilter
}

func (f *fakeSource) StreamSubaccountPositions(ctx context.Context, filter core.SubaccountFilter, cb func(core.PositionUpdate)) error {
	f.filter = filter
	for _, u := range f.updates {
		cb(u)
	}
	return nil
}

func TestStore_Watch(t *testing.T) {
	store := NewStore(logging.NewNop(), nil)
	store.SetActiveMarkets([]string{"a"})
	store.Load([]core.Position{pos("a", "1")})

	var mu sync.Mutex
	var notified int
	store.OnUpdate(func([]core.Position) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	source := &fakeSource{updates: []core.PositionUpdate{
		update("b", "2"),
		update("a", "3"),
	}}
	require.NoError(t, store.Watch(context.Background(), source, core.SubaccountFilter{MarketID: "b", SubaccountID: "0xsub"}))

	assert.Equal(t, "b", store.Filter())
	assert.Equal(t, "0xsub", source.filter.SubaccountID)
	assert.Equal(t, 2, store.Count())
	assert.Equal(t, []string{"b", "a"}, marketIDs(store.Positions()))

	a, ok := store.Get("a")
	require.True(t, ok)
	assert.True(t, a.Quantity.Equal(decimal.NewFromInt(3)))

	_, ok = store.Get("missing")
	assert.False(t, ok)

	mu.Lock()
	assert.Equal(t, 2, notified)
	mu.Unlock()
}
