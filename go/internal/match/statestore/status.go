package statestore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mcdev12/futsal/go/internal/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusScheduled: {
		models.MatchStatusSelectingStarters,
		models.MatchStatusLive,
		models.MatchStatusPostponed,
	},
	models.MatchStatusSelectingStarters: {
		models.MatchStatusLive,
		models.MatchStatusPostponed,
	},
	models.MatchStatusLive: {
		models.MatchStatusFinished,
		models.MatchStatusPostponed,
	},
	models.MatchStatusPostponed: {
		models.MatchStatusSelectingStarters,
		models.MatchStatusLive,
		models.MatchStatusFinished,
	},
}

// CheckTransition reports whether a match in state s may move to status to.
func (r Rules) CheckTransition(s models.MatchState, to models.MatchStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !slices.Contains(transitions[s.Status], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	if to == models.MatchStatusLive {
		if len(s.ActiveRosterA) != r.ActiveRosterSize || len(s.ActiveRosterB) != r.ActiveRosterSize {
			return fmt.Errorf("%w: both teams need %d players on court, have %d and %d",
				ErrInvalidTransition, r.ActiveRosterSize, len(s.ActiveRosterA), len(s.ActiveRosterB))
		}
	}
	return nil
}

func (a SetStatus) apply(s *models.MatchState, r Rules) bool {
	if r.CheckTransition(*s, a.Status) != nil {
		return false
	}
	s.Status = a.Status
	if a.Status == models.MatchStatusFinished || a.Status == models.MatchStatusPostponed {
		s.IsRunning = false
		s.Substitution = nil
	}
	return true
}
