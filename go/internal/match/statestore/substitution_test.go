package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/models"
)

func ref(side models.TeamSide, id string) models.PlayerRef {
	return models.PlayerRef{TeamSide: side, PlayerID: id}
}

func TestSubstitution_OnlyOnePendingAcrossTeams(t *testing.T) {
	s := liveMatch()

	s, changed := Reduce(s, InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a2")})
	require.True(t, changed)
	require.NotNil(t, s.Substitution)

	next, changed := Reduce(s, InitiateSubstitution{PlayerOut: ref(models.TeamSideB, "b1")})
	assert.False(t, changed)
	assert.Equal(t, ref(models.TeamSideA, "a2"), next.Substitution.PlayerOut)
}

func TestSubstitution_CompleteSwapsAndLogs(t *testing.T) {
	s := liveMatch()
	s.Period = 2
	s.Time = 900
	s, _ = Reduce(s, InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a2")})

	next, changed := Reduce(s, CompleteSubstitution{PlayerInID: "a6", EventID: "sub-1"})
	require.True(t, changed)

	assert.Nil(t, next.Substitution)
	assert.Equal(t, []string{"a1", "a6", "a3", "a4", "a5"}, next.ActiveRosterA)
	assert.Equal(t, s.ActiveRosterB, next.ActiveRosterB)
	require.Len(t, next.Events, 1)
	assert.Equal(t, models.GameEvent{
		ID:           "sub-1",
		Type:         models.EventTypeSubstitution,
		TeamID:       "team-a",
		TeamName:     "Lions",
		PlayerID:     "a2",
		PlayerName:   "Player a2",
		PlayerInID:   "a6",
		PlayerInName: "Player a6",
		Timestamp:    300,
	}, next.Events[0])
}

func TestSubstitution_CompleteRejections(t *testing.T) {
	_, changed := Reduce(liveMatch(), CompleteSubstitution{PlayerInID: "a6", EventID: "x"})
	assert.False(t, changed, "nothing pending")

	s, _ := Reduce(liveMatch(), InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a2")})
	cases := map[string]CompleteSubstitution{
		"already on court": {PlayerInID: "a3", EventID: "x"},
		"other squad":      {PlayerInID: "b6", EventID: "x"},
		"unknown player":   {PlayerInID: "zz", EventID: "x"},
		"missing event id": {PlayerInID: "a6"},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			next, changed := Reduce(s, a)
			assert.False(t, changed)
			assert.Equal(t, s, next)
		})
	}
}

func TestSubstitution_InitiateRequiresActivePlayer(t *testing.T) {
	_, changed := Reduce(liveMatch(), InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a7")})
	assert.False(t, changed)
	_, changed = Reduce(liveMatch(), InitiateSubstitution{PlayerOut: ref("C", "a1")})
	assert.False(t, changed)
}

func TestSubstitution_Cancel(t *testing.T) {
	_, changed := Reduce(liveMatch(), CancelSubstitution{})
	assert.False(t, changed)

	s, _ := Reduce(liveMatch(), InitiateSubstitution{PlayerOut: ref(models.TeamSideB, "b4")})
	s, changed = Reduce(s, CancelSubstitution{})
	require.True(t, changed)
	assert.Nil(t, s.Substitution)

	_, changed = Reduce(s, InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a1")})
	assert.True(t, changed, "a new substitution may start after cancel")
}

func TestSubstitution_ToggleBlockedForOutgoingPlayer(t *testing.T) {
	s := scheduledMatch()
	s, _ = Reduce(s, ToggleActivePlayer{Side: models.TeamSideA, PlayerID: "a1"})
	s, _ = Reduce(s, InitiateSubstitution{PlayerOut: ref(models.TeamSideA, "a1")})

	_, changed := Reduce(s, ToggleActivePlayer{Side: models.TeamSideA, PlayerID: "a1"})
	assert.False(t, changed)
}
