package statestore

import (
	"slices"

	"github.com/mcdev12/futsal/go/internal/models"
)

// Reducer applies actions to match snapshots. It never mutates its input and
// never touches clocks, ids or I/O, so the same (state, action) pair always
// yields the same result.
type Reducer struct {
	rules Rules
}

func NewReducer(rules Rules) Reducer {
	return Reducer{rules: rules.withDefaults()}
}

func (r Reducer) Rules() Rules {
	return r.rules
}

// Reduce returns the next state and whether anything changed. Rejected or
// unknown actions return the input unchanged. A finished match is read-only.
func (r Reducer) Reduce(state models.MatchState, action Action) (models.MatchState, bool) {
	if action == nil || state.Status == models.MatchStatusFinished {
		return state, false
	}
	next := state.Clone()
	if next.PlayerTimeTracker == nil {
		next.PlayerTimeTracker = map[string]int{}
	}
	if !action.apply(&next, r.rules) {
		return state, false
	}
	return next, true
}

// Reduce applies action using DefaultRules.
func Reduce(state models.MatchState, action Action) (models.MatchState, bool) {
	return NewReducer(DefaultRules()).Reduce(state, action)
}

func (a AddEvent) apply(s *models.MatchState, _ Rules) bool {
	e := a.Event
	if e.ID == "" || !e.Type.Valid() || s.HasEvent(e.ID) {
		return false
	}
	// swaps only enter the log through CompleteSubstitution
	if e.Type == models.EventTypeSubstitution {
		return false
	}
	side, ok := s.SideOf(e.TeamID)
	if e.Type.TeamScoped() && !ok {
		return false
	}

	switch e.Type {
	case models.EventTypeGoal:
		if side == models.TeamSideA {
			s.ScoreA++
		} else {
			s.ScoreB++
		}
	case models.EventTypeFoul:
		if side == models.TeamSideA {
			s.FoulsA++
		} else {
			s.FoulsB++
		}
	case models.EventTypeTimeout:
		if side == models.TeamSideA {
			s.TimeoutsA++
		} else {
			s.TimeoutsB++
		}
		s.IsRunning = false
	}

	if e.Position != nil {
		p := *e.Position
		e.Position = &p
	}
	s.Events = append(s.Events, e)
	return true
}

// The roster size is checked when the match goes LIVE, not here.
func (a ToggleActivePlayer) apply(s *models.MatchState, _ Rules) bool {
	if !a.Side.Valid() {
		return false
	}
	if s.Status != models.MatchStatusScheduled && s.Status != models.MatchStatusSelectingStarters {
		return false
	}
	if _, ok := s.Team(a.Side).Player(a.PlayerID); !ok {
		return false
	}
	if s.Substitution != nil && s.Substitution.PlayerOut == (models.PlayerRef{TeamSide: a.Side, PlayerID: a.PlayerID}) {
		return false
	}

	roster := s.ActiveRoster(a.Side)
	if slices.Contains(*roster, a.PlayerID) {
		*roster = slices.DeleteFunc(*roster, func(id string) bool { return id == a.PlayerID })
		return true
	}
	*roster = append(*roster, a.PlayerID)
	return true
}

func (a SetPeriod) apply(s *models.MatchState, r Rules) bool {
	if a.Period != 1 && a.Period != 2 {
		return false
	}
	if s.Period == a.Period && s.Time == r.PeriodLength && !s.IsRunning {
		return false
	}
	s.Period = a.Period
	s.Time = r.PeriodLength
	s.IsRunning = false
	return true
}

func (ResetState) apply(s *models.MatchState, r Rules) bool {
	fresh := models.NewMatchState(s.MatchID, s.TeamA, s.TeamB, r.PeriodLength)
	fresh.UpdatedAt = s.UpdatedAt
	*s = fresh
	return true
}

func (StartClock) apply(s *models.MatchState, _ Rules) bool {
	if s.Status != models.MatchStatusLive || s.IsRunning || s.Time <= 0 {
		return false
	}
	s.IsRunning = true
	return true
}

func (StopClock) apply(s *models.MatchState, _ Rules) bool {
	if !s.IsRunning {
		return false
	}
	s.IsRunning = false
	return true
}

// Tick never takes the clock below zero. Every on-court player of both teams
// is credited with the seconds actually consumed.
func (a Tick) apply(s *models.MatchState, _ Rules) bool {
	if !s.IsRunning || a.Seconds <= 0 {
		return false
	}
	n := min(a.Seconds, s.Time)
	s.Time -= n
	for _, id := range s.ActiveRosterA {
		s.PlayerTimeTracker[id] += n
	}
	for _, id := range s.ActiveRosterB {
		s.PlayerTimeTracker[id] += n
	}
	if s.Time == 0 {
		s.IsRunning = false
	}
	return true
}

func (a SetTime) apply(s *models.MatchState, r Rules) bool {
	if s.IsRunning {
		return false
	}
	t := max(0, min(a.Seconds, r.PeriodLength))
	if t == s.Time {
		return false
	}
	s.Time = t
	return true
}
