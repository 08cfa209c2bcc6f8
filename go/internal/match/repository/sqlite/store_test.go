package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/models"
)

var _ persistence.Store = (*Store)(nil)

var t0 = time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)

func createTestStore(t *testing.T, clk clockwork.Clock) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "futsal.db"), WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func squad(prefix string) []models.Player {
	players := make([]models.Player, 0, 6)
	for i := 1; i <= 6; i++ {
		players = append(players, models.Player{ID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("Player %s%d", prefix, i), Number: i + 1})
	}
	return players
}

func newMatch() models.MatchState {
	s := models.NewMatchState("match-1",
		models.Team{ID: "team-a", Name: "Lions", Players: squad("a")},
		models.Team{ID: "team-b", Name: "Hawks", Players: squad("b")},
		models.PeriodLength,
	)
	s.UpdatedAt = t0
	return s
}

func TestOpen_CreatesDatabaseAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "futsal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var mode string
	require.NoError(t, s2.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestLoadMatch_Unknown(t *testing.T) {
	s := createTestStore(t, clockwork.NewFakeClockAt(t0))

	_, err := s.LoadMatch(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrMatchNotFound)
}

func TestCreateMatch_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, clockwork.NewFakeClockAt(t0))

	created, err := s.CreateMatch(ctx, newMatch())
	require.NoError(t, err)
	assert.True(t, created)

	again := newMatch()
	again.ScoreA = 9
	created, err = s.CreateMatch(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.LoadMatch(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ScoreA)
}

func TestPersistThenLoad_RestoresState(t *testing.T) {
	ctx := context.Background()
	clk := clockwork.NewFakeClockAt(t0)
	s := createTestStore(t, clk)

	_, err := s.CreateMatch(ctx, newMatch())
	require.NoError(t, err)

	state := newMatch()
	state.Status = models.MatchStatusLive
	state.ScoreA = 2
	state.ScoreB = 1
	state.FoulsA = 3
	state.TimeoutsB = 1
	state.Period = 2
	state.Time = 615
	state.IsRunning = true
	state.ActiveRosterA = []string{"a1", "a2", "a3", "a4", "a6"}
	state.ActiveRosterB = []string{"b1", "b2", "b3", "b4", "b5"}
	state.PlayerTimeTracker = map[string]int{"a1": 1785, "a6": 300, "b1": 1785}
	state.Events = []models.GameEvent{
		{ID: "e1", Type: models.EventTypeMatchStart, Timestamp: 2400},
		{ID: "e2", Type: models.EventTypeGoal, TeamID: "team-a", TeamName: "Lions", PlayerID: "a1", PlayerName: "Player a1", Timestamp: 1500, Position: &models.Position{X: 80, Y: 45.5}},
		{ID: "e3", Type: models.EventTypeSubstitution, TeamID: "team-a", TeamName: "Lions", PlayerID: "a5", PlayerName: "Player a5", PlayerInID: "a6", PlayerInName: "Player a6", Timestamp: 300},
	}
	state.UpdatedAt = t0.Add(25 * time.Minute)

	for _, ev := range state.Events {
		clk.Advance(time.Second)
		require.NoError(t, s.PersistEvent(ctx, state.MatchID, ev))
	}
	require.NoError(t, s.PersistState(ctx, state))

	got, err := s.LoadMatch(ctx, state.MatchID)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestPersistState_StaleWriteIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, clockwork.NewFakeClockAt(t0))

	newer := newMatch()
	newer.ScoreA = 3
	newer.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, s.PersistState(ctx, newer))

	older := newMatch()
	older.ScoreA = 1
	older.UpdatedAt = t0.Add(30 * time.Second)
	require.NoError(t, s.PersistState(ctx, older))

	same := newMatch()
	same.ScoreA = 5
	same.UpdatedAt = newer.UpdatedAt
	require.NoError(t, s.PersistState(ctx, same))

	got, err := s.LoadMatch(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ScoreA)
	assert.True(t, newer.UpdatedAt.Equal(got.UpdatedAt))
}

func TestPersistEvent_DuplicateIsNoop(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, clockwork.NewFakeClockAt(t0))
	_, err := s.CreateMatch(ctx, newMatch())
	require.NoError(t, err)

	ev := models.GameEvent{ID: "e1", Type: models.EventTypeFoul, TeamID: "team-b", PlayerID: "b2", Timestamp: 2000}
	require.NoError(t, s.PersistEvent(ctx, "match-1", ev))
	require.NoError(t, s.PersistEvent(ctx, "match-1", ev))

	got, err := s.LoadMatch(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, []models.GameEvent{ev}, got.Events)
}

func TestPersistState_ResetClearsOlderEvents(t *testing.T) {
	ctx := context.Background()
	clk := clockwork.NewFakeClockAt(t0)
	s := createTestStore(t, clk)
	_, err := s.CreateMatch(ctx, newMatch())
	require.NoError(t, err)

	clk.Advance(time.Second)
	require.NoError(t, s.PersistEvent(ctx, "match-1", models.GameEvent{ID: "old", Type: models.EventTypeMatchStart, Timestamp: 2400}))

	reset := newMatch()
	reset.UpdatedAt = t0.Add(time.Minute)

	clk.Advance(2 * time.Minute)
	fresh := models.GameEvent{ID: "new", Type: models.EventTypeMatchStart, Timestamp: 2400}
	require.NoError(t, s.PersistEvent(ctx, "match-1", fresh))

	require.NoError(t, s.PersistState(ctx, reset))

	got, err := s.LoadMatch(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, []models.GameEvent{fresh}, got.Events)
}

func TestReconcilerOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, clockwork.NewFakeClockAt(t0))

	durable := newMatch()
	durable.ScoreB = 2
	durable.UpdatedAt = t0.Add(2 * time.Minute)
	require.NoError(t, s.PersistState(ctx, durable))

	cached := newMatch()
	cached.ScoreB = 1
	cached.UpdatedAt = t0.Add(time.Minute)

	state, src := persistence.Reconcile(&cached, mustLoad(t, s, "match-1"))
	assert.Equal(t, persistence.SourceDurable, src)
	assert.Equal(t, 2, state.ScoreB)
}

func mustLoad(t *testing.T, s *Store, id string) models.MatchState {
	t.Helper()
	state, err := s.LoadMatch(context.Background(), id)
	require.NoError(t, err)
	return state
}
