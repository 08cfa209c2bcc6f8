package statestore

import (
	"fmt"

	"github.com/mcdev12/futsal/go/internal/models"
)

func squad(prefix string, n int) []models.Player {
	players := make([]models.Player, 0, n)
	for i := 1; i <= n; i++ {
		players = append(players, models.Player{
			ID:     fmt.Sprintf("%s%d", prefix, i),
			Name:   fmt.Sprintf("Player %s%d", prefix, i),
			Number: i,
		})
	}
	return players
}

func scheduledMatch() models.MatchState {
	return models.NewMatchState("match-1",
		models.Team{ID: "team-a", Name: "Lions", Players: squad("a", 7)},
		models.Team{ID: "team-b", Name: "Hawks", Players: squad("b", 7)},
		models.PeriodLength,
	)
}

// liveMatch has a1..a5 and b1..b5 on court and the clock stopped.
func liveMatch() models.MatchState {
	s := scheduledMatch()
	s.ActiveRosterA = []string{"a1", "a2", "a3", "a4", "a5"}
	s.ActiveRosterB = []string{"b1", "b2", "b3", "b4", "b5"}
	s.Status = models.MatchStatusLive
	return s
}

func runningMatch() models.MatchState {
	s := liveMatch()
	s.IsRunning = true
	return s
}
