package dispatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/match/statestore"
	"github.com/mcdev12/futsal/go/internal/models"
)

func liveState() models.MatchState {
	s := models.NewMatchState("m1",
		models.Team{ID: "ta", Name: "Lions", Players: []models.Player{{ID: "a1", Name: "Ana"}}},
		models.Team{ID: "tb", Name: "Hawks", Players: []models.Player{{ID: "b1", Name: "Bo"}}},
		models.PeriodLength,
	)
	s.Status = models.MatchStatusLive
	s.Time = 1000
	return s
}

func fixedIDs(ids ...string) Option {
	return WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})
}

func TestPrepare_StampsEvent(t *testing.T) {
	d := New(statestore.DefaultRules(), fixedIDs("ev-1"))

	a, err := d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{
		Type:     models.EventTypeGoal,
		TeamID:   "tb",
		PlayerID: "b1",
		Position: &models.Position{X: 80, Y: 40},
	}})
	require.NoError(t, err)

	ev := a.(statestore.AddEvent).Event
	assert.Equal(t, models.GameEvent{
		ID:         "ev-1",
		Type:       models.EventTypeGoal,
		TeamID:     "tb",
		TeamName:   "Hawks",
		PlayerID:   "b1",
		PlayerName: "Bo",
		Timestamp:  2200,
		Position:   &models.Position{X: 80, Y: 40},
	}, ev)
}

func TestPrepare_KeepsCallerID(t *testing.T) {
	d := New(statestore.DefaultRules(), fixedIDs("unused"))
	a, err := d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{ID: "mine", Type: models.EventTypeShot, TeamID: "ta"}})
	require.NoError(t, err)
	assert.Equal(t, "mine", a.(statestore.AddEvent).Event.ID)
}

func TestPrepare_Rejections(t *testing.T) {
	d := New(statestore.DefaultRules(), WithIDGenerator(func() string { return "x" }))
	scheduled := liveState()
	scheduled.Status = models.MatchStatusScheduled

	tests := []struct {
		name  string
		state models.MatchState
		event models.GameEvent
		want  error
	}{
		{"unknown type", liveState(), models.GameEvent{Type: "PENALTY", TeamID: "ta"}, ErrInvalidEvent},
		{"substitution", liveState(), models.GameEvent{Type: models.EventTypeSubstitution, TeamID: "ta"}, ErrInvalidEvent},
		{"unknown team", liveState(), models.GameEvent{Type: models.EventTypeFoul, TeamID: "tz"}, ErrUnknownTeam},
		{"player of other team", liveState(), models.GameEvent{Type: models.EventTypeFoul, TeamID: "ta", PlayerID: "b1"}, ErrUnknownPlayer},
		{"not live", scheduled, models.GameEvent{Type: models.EventTypeGoal, TeamID: "ta"}, ErrNotLive},
		{"match event with team", liveState(), models.GameEvent{Type: models.EventTypeMatchEnd, TeamID: "ta"}, ErrInvalidEvent},
		{"off pitch", liveState(), models.GameEvent{Type: models.EventTypeShot, TeamID: "ta", Position: &models.Position{X: 101, Y: 2}}, ErrInvalidEvent},
		{"nan position", liveState(), models.GameEvent{Type: models.EventTypeShot, TeamID: "ta", Position: &models.Position{X: math.NaN(), Y: 2}}, ErrInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Prepare(tt.state, statestore.AddEvent{Event: tt.event})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIgnorable(t *testing.T) {
	d := New(statestore.DefaultRules(), WithIDGenerator(func() string { return "x" }))
	scheduled := liveState()
	scheduled.Status = models.MatchStatusScheduled

	_, err := d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeFoul, TeamID: "ta", PlayerID: "ghost"}})
	assert.True(t, Ignorable(err))
	_, err = d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeFoul, TeamID: "tz"}})
	assert.True(t, Ignorable(err))
	_, err = d.Prepare(scheduled, statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeGoal, TeamID: "ta"}})
	assert.True(t, Ignorable(err))

	_, err = d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{Type: "PENALTY", TeamID: "ta"}})
	assert.False(t, Ignorable(err))
	_, err = d.Prepare(liveState(), statestore.SetStatus{Status: models.MatchStatusScheduled})
	assert.False(t, Ignorable(err))
	assert.False(t, Ignorable(nil))
}

func TestPrepare_StampsAssist(t *testing.T) {
	d := New(statestore.DefaultRules(), fixedIDs("as"))
	a, err := d.Prepare(liveState(), statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeAssist, TeamID: "ta", PlayerID: "a1"}})
	require.NoError(t, err)

	ev := a.(statestore.AddEvent).Event
	assert.Equal(t, models.EventTypeAssist, ev.Type)
	assert.Equal(t, "as", ev.ID)
	assert.Equal(t, "a1", ev.PlayerID)
	assert.NotEmpty(t, ev.PlayerName)
}

func TestPrepare_MatchLevelEventOutsideLive(t *testing.T) {
	d := New(statestore.DefaultRules(), fixedIDs("k"))
	s := liveState()
	s.Status = models.MatchStatusScheduled

	a, err := d.Prepare(s, statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeMatchStart}})
	require.NoError(t, err)
	assert.Equal(t, 2200, a.(statestore.AddEvent).Event.Timestamp)
}

func TestPrepare_CompleteSubstitutionGetsEventID(t *testing.T) {
	d := New(statestore.DefaultRules(), fixedIDs("sub-1"))
	a, err := d.Prepare(liveState(), statestore.CompleteSubstitution{PlayerInID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, statestore.CompleteSubstitution{PlayerInID: "a1", EventID: "sub-1"}, a)
}

func TestPrepare_SetStatusChecksTransition(t *testing.T) {
	d := New(statestore.DefaultRules())
	_, err := d.Prepare(liveState(), statestore.SetStatus{Status: models.MatchStatusScheduled})
	assert.ErrorIs(t, err, statestore.ErrInvalidTransition)

	a, err := d.Prepare(liveState(), statestore.SetStatus{Status: models.MatchStatusFinished})
	require.NoError(t, err)
	assert.Equal(t, statestore.SetStatus{Status: models.MatchStatusFinished}, a)
}

func TestPrepare_PassThrough(t *testing.T) {
	d := New(statestore.DefaultRules())
	a, err := d.Prepare(liveState(), statestore.Tick{Seconds: 3})
	require.NoError(t, err)
	assert.Equal(t, statestore.Tick{Seconds: 3}, a)
}
