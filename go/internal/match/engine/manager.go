package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/match/replication"
	"github.com/mcdev12/futsal/go/internal/models"
)

const cacheWriteTimeout = 2 * time.Second

// Loader resolves the starting snapshot of a match and writes checkpoints.
type Loader interface {
	Load(ctx context.Context, matchID string) (models.MatchState, persistence.Source, error)
	Flusher
}

type ManagerDeps struct {
	Clock          clockwork.Clock
	Loader         Loader
	Cache          persistence.Cache
	Bus            replication.Bus
	Events         EventSink
	OnPersistError func(matchID string, err error)
}

// Manager keeps one engine per open match on this replica.
type Manager struct {
	cfg  Config
	deps ManagerDeps

	mu      sync.Mutex
	engines map[string]*MatchEngine
}

func NewManager(cfg Config, deps ManagerDeps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		engines: make(map[string]*MatchEngine),
	}
}

// Open returns the running engine for matchID, loading and reconciling the
// match on first use.
func (m *Manager) Open(ctx context.Context, matchID string) (*MatchEngine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[matchID]; ok {
		return e, nil
	}

	state, _, err := m.deps.Loader.Load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	e := New(state, m.cfg, Deps{
		Clock:          m.deps.Clock,
		Bus:            m.deps.Bus,
		Events:         m.deps.Events,
		Flusher:        m.deps.Loader,
		OnPersistError: m.deps.OnPersistError,
	})
	if m.deps.Cache != nil {
		e.Subscribe(m.cacheWriter(matchID))
	}
	if err := e.Start(); err != nil {
		return nil, fmt.Errorf("start engine for match %s: %w", matchID, err)
	}

	m.engines[matchID] = e
	return e, nil
}

func (m *Manager) cacheWriter(matchID string) Listener {
	return func(s models.MatchState) {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := m.deps.Cache.Put(ctx, s); err != nil {
			log.Warn().Err(err).Str("match_id", matchID).Msg("failed to cache snapshot")
		}
	}
}

// Get returns an already open engine.
func (m *Manager) Get(matchID string) (*MatchEngine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[matchID]
	return e, ok
}

// OpenMatches lists the ids of open matches.
func (m *Manager) OpenMatches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	return ids
}

// CloseMatch closes and forgets one engine.
func (m *Manager) CloseMatch(ctx context.Context, matchID string) error {
	m.mu.Lock()
	e, ok := m.engines[matchID]
	delete(m.engines, matchID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return e.Close(ctx)
}

// Shutdown closes every engine, collecting checkpoint failures.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*MatchEngine)
	m.mu.Unlock()

	var errs []error
	for id, e := range engines {
		if err := e.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close match %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
