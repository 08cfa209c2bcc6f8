package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/match/repository/postgres/db"
	"github.com/mcdev12/futsal/go/internal/models"
)

var _ persistence.Store = (*Repository)(nil)

func TestMatchStateParamsNeverSendsNilRosters(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 18, 0, 0, 123456789, time.FixedZone("CET", 3600))
	s := models.MatchState{
		MatchID:   "m1",
		TeamA:     models.Team{ID: "a"},
		TeamB:     models.Team{ID: "b"},
		Status:    models.MatchStatusLive,
		ScoreA:    2,
		Period:    2,
		Time:      615,
		UpdatedAt: stamp,
	}

	p := matchStateParams(s)

	assert.NotNil(t, p.ActiveRosterA)
	assert.NotNil(t, p.ActiveRosterB)
	assert.Equal(t, "LIVE", p.Status)
	assert.Equal(t, int32(2), p.ScoreA)
	assert.Equal(t, int16(2), p.Period)
	assert.Equal(t, int32(615), p.TimeRemaining)
	assert.Equal(t, time.UTC, p.UpdatedAt.Location())
	assert.Equal(t, 123456000, p.UpdatedAt.Nanosecond())
}

func TestEventParams(t *testing.T) {
	p, err := eventParams("m1", models.GameEvent{
		ID:         "e1",
		Type:       models.EventTypeGoal,
		TeamID:     "a",
		TeamName:   "Lions",
		PlayerID:   "a1",
		PlayerName: "Ana",
		Timestamp:  1450,
		Position:   &models.Position{X: 12.5, Y: 40},
	})
	require.NoError(t, err)

	assert.Equal(t, "GOAL", p.EventType)
	assert.Equal(t, sql.NullString{String: "a", Valid: true}, p.TeamID)
	assert.False(t, p.PlayerInID.Valid)
	assert.Equal(t, int32(1450), p.MatchTime)
	require.True(t, p.Position.Valid)
	assert.JSONEq(t, `{"x":12.5,"y":40}`, string(p.Position.RawMessage))

	p, err = eventParams("m1", models.GameEvent{ID: "e2", Type: models.EventTypeMatchStart})
	require.NoError(t, err)
	assert.False(t, p.TeamID.Valid)
	assert.False(t, p.Position.Valid)
}

func TestEventRowRoundTrip(t *testing.T) {
	in := models.GameEvent{
		ID:           "e1",
		Type:         models.EventTypeSubstitution,
		TeamID:       "b",
		TeamName:     "Wolves",
		PlayerID:     "b1",
		PlayerName:   "Bo",
		PlayerInID:   "b6",
		PlayerInName: "Cy",
		Timestamp:    300,
	}
	p, err := eventParams("m1", in)
	require.NoError(t, err)

	row := db.MatchEvent{
		MatchID:      p.MatchID,
		EventID:      p.EventID,
		EventType:    p.EventType,
		TeamID:       p.TeamID,
		TeamName:     p.TeamName,
		PlayerID:     p.PlayerID,
		PlayerName:   p.PlayerName,
		PlayerInID:   p.PlayerInID,
		PlayerInName: p.PlayerInName,
		MatchTime:    p.MatchTime,
		Position:     p.Position,
	}
	assert.Equal(t, in, eventFromRow(row))
}

func TestMatchFromRows(t *testing.T) {
	updated := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	m := db.Match{
		ID:            "m1",
		TeamAID:       "a",
		TeamBID:       "b",
		Status:        "LIVE",
		ScoreB:        1,
		FoulsA:        3,
		TimeoutsB:     1,
		Period:        1,
		TimeRemaining: 900,
		IsRunning:     true,
		ActiveRosterA: []string{"a1", "a2", "a3", "a4", "a5"},
		UpdatedAt:     updated,
	}
	teamA := teamFromRows(db.Team{ID: "a", Name: "Lions"}, []db.Player{
		{ID: "a1", TeamID: "a", FullName: "Ana", JerseyNumber: sql.NullInt32{Int32: 9, Valid: true}},
		{ID: "a2", TeamID: "a", FullName: "Ben"},
	})
	teamB := teamFromRows(db.Team{ID: "b", Name: "Wolves"}, nil)

	s := matchFromRows(m, teamA, teamB,
		[]db.MatchPlayerTime{{MatchID: "m1", PlayerID: "a1", SecondsPlayed: 300}},
		[]db.MatchEvent{{EventID: "e1", EventType: "FOUL", MatchTime: 1300}},
	)

	assert.Equal(t, models.MatchStatusLive, s.Status)
	assert.Equal(t, 1, s.ScoreB)
	assert.Equal(t, 3, s.FoulsA)
	assert.Equal(t, 1, s.TimeoutsB)
	assert.Equal(t, 900, s.Time)
	assert.True(t, s.IsRunning)
	assert.Len(t, s.ActiveRosterA, 5)
	assert.NotNil(t, s.ActiveRosterB)
	assert.Equal(t, map[string]int{"a1": 300}, s.PlayerTimeTracker)
	require.Len(t, s.Events, 1)
	assert.Equal(t, models.EventTypeFoul, s.Events[0].Type)
	assert.Equal(t, 9, s.TeamA.Players[0].Number)
	assert.Equal(t, 0, s.TeamA.Players[1].Number)
	assert.NotNil(t, s.TeamB.Players)
	assert.True(t, updated.Equal(s.UpdatedAt))
}
