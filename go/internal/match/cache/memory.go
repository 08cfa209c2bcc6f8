package cache

import (
	"context"
	"sync"

	"github.com/mcdev12/futsal/go/internal/models"
)

// MemoryCache is a process-local snapshot cache.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]models.MatchState
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{snapshots: make(map[string]models.MatchState)}
}

func (c *MemoryCache) Get(_ context.Context, matchID string) (models.MatchState, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshots[matchID]
	if !ok {
		return models.MatchState{}, false, nil
	}
	return s.Clone(), true, nil
}

func (c *MemoryCache) Put(_ context.Context, state models.MatchState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[state.MatchID] = state.Clone()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, matchID)
	return nil
}
