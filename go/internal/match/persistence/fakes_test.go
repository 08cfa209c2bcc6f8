package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/mcdev12/futsal/go/internal/models"
)

var errBoom = errors.New("boom")

type fakeStore struct {
	mu        sync.Mutex
	match     *models.MatchState
	loadErr   error
	persisted []models.MatchState
	events    []string
	seen      map[string]bool
	failNext  int
	attempts  int
}

func (f *fakeStore) LoadMatch(_ context.Context, matchID string) (models.MatchState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return models.MatchState{}, f.loadErr
	}
	if f.match == nil || f.match.MatchID != matchID {
		return models.MatchState{}, models.ErrMatchNotFound
	}
	return f.match.Clone(), nil
}

func (f *fakeStore) PersistState(_ context.Context, state models.MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errBoom
	}
	f.persisted = append(f.persisted, state.Clone())
	return nil
}

func (f *fakeStore) PersistEvent(_ context.Context, matchID string, event models.GameEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failNext > 0 {
		f.failNext--
		return errBoom
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := matchID + "/" + event.ID
	if f.seen[key] {
		return nil
	}
	f.seen[key] = true
	f.events = append(f.events, event.ID)
	return nil
}

func (f *fakeStore) eventIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeStore) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

type fakeCache struct {
	state *models.MatchState
	err   error
}

func (c *fakeCache) Get(_ context.Context, matchID string) (models.MatchState, bool, error) {
	if c.err != nil {
		return models.MatchState{}, false, c.err
	}
	if c.state == nil || c.state.MatchID != matchID {
		return models.MatchState{}, false, nil
	}
	return c.state.Clone(), true, nil
}

func (c *fakeCache) Put(_ context.Context, state models.MatchState) error {
	s := state.Clone()
	c.state = &s
	return nil
}

func (c *fakeCache) Delete(context.Context, string) error {
	c.state = nil
	return nil
}
