// Package store persists the monitored application state
package store

import (
	"context"
	"time"

	"dex_trader/internal/core"

	"github.com/shopspring/decimal"
)

// AppState is the shared market context refreshed by the monitor
type AppState struct {
	GasPrice  decimal.Decimal      `json:"gasPrice"`
	Summaries []core.MarketSummary `json:"summaries"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Clone returns a copy that does not share the summaries slice
func (s *AppState) Clone() *AppState {
	if s == nil {
		return nil
	}
	out := *s
	out.Summaries = append([]core.MarketSummary(nil), s.Summaries...)
	return &out
}

// SnapshotStore saves and loads the latest AppState.
// LoadState returns nil, nil when nothing was saved yet.
type SnapshotStore interface {
	SaveState(ctx context.Context, state *AppState) error
	LoadState(ctx context.Context) (*AppState, error)
	Close() error
}

// New returns the store selected by kind ("memory" or "sqlite")
func New(kind, path string) (SnapshotStore, error) {
	if kind == "sqlite" {
		return NewSQLiteStore(path)
	}
	return NewMemoryStore(), nil
}
