package models

import (
	"errors"
	"slices"
	"time"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchStatus is the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusScheduled         MatchStatus = "SCHEDULED"
	MatchStatusSelectingStarters MatchStatus = "SELECTING_STARTERS"
	MatchStatusLive              MatchStatus = "LIVE"
	MatchStatusPostponed         MatchStatus = "POSTPONED"
	MatchStatusFinished          MatchStatus = "FINISHED"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusSelectingStarters, MatchStatusLive,
		MatchStatusPostponed, MatchStatusFinished:
		return true
	}
	return false
}

// MatchState is the full live state of one match. It is replicated whole and
// compared across replicas by UpdatedAt.
type MatchState struct {
	MatchID           string             `json:"match_id"`
	TeamA             Team               `json:"team_a"`
	TeamB             Team               `json:"team_b"`
	Status            MatchStatus        `json:"status"`
	ScoreA            int                `json:"score_a"`
	ScoreB            int                `json:"score_b"`
	FoulsA            int                `json:"fouls_a"`
	FoulsB            int                `json:"fouls_b"`
	TimeoutsA         int                `json:"timeouts_a"`
	TimeoutsB         int                `json:"timeouts_b"`
	Period            int                `json:"period"`
	Time              int                `json:"time"`
	IsRunning         bool               `json:"is_running"`
	ActiveRosterA     []string           `json:"active_roster_a"`
	ActiveRosterB     []string           `json:"active_roster_b"`
	Substitution      *SubstitutionState `json:"substitution_state"`
	PlayerTimeTracker map[string]int     `json:"player_time_tracker"`
	Events            []GameEvent        `json:"events"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewMatchState returns a scheduled match at the start of period 1.
func NewMatchState(matchID string, teamA, teamB Team, periodLength int) MatchState {
	return MatchState{
		MatchID:           matchID,
		TeamA:             teamA,
		TeamB:             teamB,
		Status:            MatchStatusScheduled,
		Period:            1,
		Time:              periodLength,
		ActiveRosterA:     []string{},
		ActiveRosterB:     []string{},
		PlayerTimeTracker: map[string]int{},
		Events:            []GameEvent{},
	}
}

// Team returns the team on the given side.
func (m *MatchState) Team(side TeamSide) Team {
	if side == TeamSideB {
		return m.TeamB
	}
	return m.TeamA
}

// SideOf resolves a team id to its side.
func (m *MatchState) SideOf(teamID string) (TeamSide, bool) {
	switch teamID {
	case "":
		return "", false
	case m.TeamA.ID:
		return TeamSideA, true
	case m.TeamB.ID:
		return TeamSideB, true
	}
	return "", false
}

// ActiveRoster returns a pointer to the on-court list for a side.
func (m *MatchState) ActiveRoster(side TeamSide) *[]string {
	if side == TeamSideB {
		return &m.ActiveRosterB
	}
	return &m.ActiveRosterA
}

// IsActive reports whether the player is on court for the side.
func (m *MatchState) IsActive(side TeamSide, playerID string) bool {
	return slices.Contains(*m.ActiveRoster(side), playerID)
}

// HasEvent reports whether an event with this id is already in the log.
func (m *MatchState) HasEvent(id string) bool {
	return slices.ContainsFunc(m.Events, func(e GameEvent) bool { return e.ID == id })
}

// Clone returns a deep copy, so snapshots handed to listeners or other
// replicas never alias the engine's own state.
func (m MatchState) Clone() MatchState {
	out := m
	out.TeamA = m.TeamA.clone()
	out.TeamB = m.TeamB.clone()
	out.ActiveRosterA = slices.Clone(m.ActiveRosterA)
	out.ActiveRosterB = slices.Clone(m.ActiveRosterB)
	if m.Substitution != nil {
		sub := *m.Substitution
		out.Substitution = &sub
	}
	if m.PlayerTimeTracker != nil {
		out.PlayerTimeTracker = make(map[string]int, len(m.PlayerTimeTracker))
		for k, v := range m.PlayerTimeTracker {
			out.PlayerTimeTracker[k] = v
		}
	}
	if m.Events != nil {
		out.Events = make([]GameEvent, len(m.Events))
		for i, e := range m.Events {
			out.Events[i] = e.clone()
		}
	}
	return out
}
