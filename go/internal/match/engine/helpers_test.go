package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/models"
)

var t0 = time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)

func squad(prefix string) []models.Player {
	players := make([]models.Player, 0, 7)
	for i := 1; i <= 7; i++ {
		players = append(players, models.Player{ID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("Player %s%d", prefix, i)})
	}
	return players
}

// liveState is a live match with a1..a5 and b1..b5 on court and the clock stopped.
func liveState() models.MatchState {
	s := models.NewMatchState("match-1",
		models.Team{ID: "team-a", Name: "Lions", Players: squad("a")},
		models.Team{ID: "team-b", Name: "Hawks", Players: squad("b")},
		models.PeriodLength,
	)
	s.Status = models.MatchStatusLive
	s.ActiveRosterA = []string{"a1", "a2", "a3", "a4", "a5"}
	s.ActiveRosterB = []string{"b1", "b2", "b3", "b4", "b5"}
	s.UpdatedAt = t0
	return s
}

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type fakeSink struct {
	mu     sync.Mutex
	events []models.GameEvent
}

func (s *fakeSink) Enqueue(_ string, ev models.GameEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *fakeSink) get() []models.GameEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GameEvent(nil), s.events...)
}

type fakeFlusher struct {
	mu     sync.Mutex
	states []models.MatchState
	err    error
}

func (f *fakeFlusher) Flush(_ context.Context, s models.MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return &persistence.PersistError{Op: persistence.OpPersistState, MatchID: s.MatchID, Err: f.err}
	}
	f.states = append(f.states, s)
	return nil
}

func (f *fakeFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

func (f *fakeFlusher) last() models.MatchState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[len(f.states)-1]
}

func (f *fakeFlusher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type snapshots struct {
	mu    sync.Mutex
	items []models.MatchState
}

func (s *snapshots) listen(state models.MatchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, state)
}

func (s *snapshots) get() []models.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MatchState(nil), s.items...)
}

func startEngine(t *testing.T, initial models.MatchState, cfg Config, deps Deps) *MatchEngine {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = clockwork.NewFakeClockAt(t0)
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = seqIDs()
	}
	if cfg.ReplicaID == "" {
		cfg.ReplicaID = "replica-test"
	}
	e := New(initial, cfg, deps)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func waitForTimer(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
}

func goal(team, player string) models.GameEvent {
	return models.GameEvent{Type: models.EventTypeGoal, TeamID: team, PlayerID: player}
}
