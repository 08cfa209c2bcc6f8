package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/models"
)

var t0 = time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)

func snapshot(score int, updated time.Time, events ...string) models.MatchState {
	s := models.NewMatchState("m1", models.Team{ID: "ta"}, models.Team{ID: "tb"}, models.PeriodLength)
	s.ScoreA = score
	s.UpdatedAt = updated
	for _, id := range events {
		s.Events = append(s.Events, models.GameEvent{ID: id, Type: models.EventTypeGoal, TeamID: "ta"})
	}
	return s
}

func TestReconcile_TieKeepsLocal(t *testing.T) {
	local := snapshot(3, t0, "l1", "l2", "l3")
	durable := snapshot(1, t0, "d1")

	got, src := Reconcile(&local, durable)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, local, got)
}

func TestReconcile_DurableStrictlyNewerWins(t *testing.T) {
	local := snapshot(3, t0, "l1")
	durable := snapshot(1, t0.Add(time.Millisecond), "d1")

	got, src := Reconcile(&local, durable)
	assert.Equal(t, SourceDurable, src)
	assert.Equal(t, durable, got)
	assert.Equal(t, []models.GameEvent{{ID: "d1", Type: models.EventTypeGoal, TeamID: "ta"}}, got.Events,
		"events come from the winner only")
}

func TestReconcile_NoLocal(t *testing.T) {
	durable := snapshot(1, t0)
	got, src := Reconcile(nil, durable)
	assert.Equal(t, SourceDurable, src)
	assert.Equal(t, durable, got)
}

func TestReconciler_Load(t *testing.T) {
	ctx := context.Background()
	durable := snapshot(1, t0)
	local := snapshot(4, t0.Add(time.Second))

	t.Run("newer cache wins", func(t *testing.T) {
		r := NewReconciler(&fakeStore{match: &durable}, &fakeCache{state: &local})
		got, src, err := r.Load(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, SourceCache, src)
		assert.Equal(t, 4, got.ScoreA)
	})

	t.Run("cache read error is ignored", func(t *testing.T) {
		r := NewReconciler(&fakeStore{match: &durable}, &fakeCache{err: errBoom})
		got, src, err := r.Load(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, SourceDurable, src)
		assert.Equal(t, 1, got.ScoreA)
	})

	t.Run("no cache configured", func(t *testing.T) {
		r := NewReconciler(&fakeStore{match: &durable}, nil)
		_, src, err := r.Load(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, SourceDurable, src)
	})

	t.Run("unknown match", func(t *testing.T) {
		r := NewReconciler(&fakeStore{}, &fakeCache{state: &local})
		_, _, err := r.Load(ctx, "m1")
		assert.ErrorIs(t, err, models.ErrMatchNotFound)
	})

	t.Run("store down falls back to cache", func(t *testing.T) {
		r := NewReconciler(&fakeStore{loadErr: errBoom}, &fakeCache{state: &local})
		got, src, err := r.Load(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, SourceCache, src)
		assert.Equal(t, 4, got.ScoreA)
	})

	t.Run("store down without cache", func(t *testing.T) {
		r := NewReconciler(&fakeStore{loadErr: errBoom}, &fakeCache{})
		_, _, err := r.Load(ctx, "m1")
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestReconciler_FlushWrapsErrors(t *testing.T) {
	store := &fakeStore{failNext: 1}
	r := NewReconciler(store, nil)

	err := r.Flush(context.Background(), snapshot(1, t0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, errBoom)

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpPersistState, pe.Op)
	assert.Equal(t, "m1", pe.MatchID)

	require.NoError(t, r.Flush(context.Background(), snapshot(2, t0)))
	require.Len(t, store.persisted, 1)
	assert.Equal(t, 2, store.persisted[0].ScoreA)
}
