package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process
type MemoryStore struct {
	state *AppState
	mu    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveState(ctx context.Context, state *AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	return nil
}

func (s *MemoryStore) LoadState(ctx context.Context) (*AppState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
