package statestore

import (
	"slices"

	"github.com/mcdev12/futsal/go/internal/models"
)

// Only one substitution may be pending per match, across both teams.

func (a InitiateSubstitution) apply(s *models.MatchState, _ Rules) bool {
	if s.Substitution != nil || !a.PlayerOut.TeamSide.Valid() {
		return false
	}
	if !s.IsActive(a.PlayerOut.TeamSide, a.PlayerOut.PlayerID) {
		return false
	}
	s.Substitution = &models.SubstitutionState{PlayerOut: a.PlayerOut}
	return true
}

func (a CompleteSubstitution) apply(s *models.MatchState, r Rules) bool {
	if s.Substitution == nil || a.EventID == "" || s.HasEvent(a.EventID) {
		return false
	}
	out := s.Substitution.PlayerOut
	team := s.Team(out.TeamSide)

	in, ok := team.Player(a.PlayerInID)
	if !ok || s.IsActive(out.TeamSide, in.ID) {
		return false
	}
	roster := s.ActiveRoster(out.TeamSide)
	idx := slices.Index(*roster, out.PlayerID)
	if idx < 0 {
		return false
	}
	(*roster)[idx] = in.ID

	outPlayer, _ := team.Player(out.PlayerID)
	s.Events = append(s.Events, models.GameEvent{
		ID:           a.EventID,
		Type:         models.EventTypeSubstitution,
		TeamID:       team.ID,
		TeamName:     team.Name,
		PlayerID:     out.PlayerID,
		PlayerName:   outPlayer.Name,
		PlayerInID:   in.ID,
		PlayerInName: in.Name,
		Timestamp:    r.EncodeTime(*s),
	})
	s.Substitution = nil
	return true
}

func (CancelSubstitution) apply(s *models.MatchState, _ Rules) bool {
	if s.Substitution == nil {
		return false
	}
	s.Substitution = nil
	return true
}
