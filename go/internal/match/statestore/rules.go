package statestore

import "github.com/mcdev12/futsal/go/internal/models"

// Rules are the competition parameters the reducer enforces.
type Rules struct {
	PeriodLength     int `yaml:"period_length_sec"`
	ActiveRosterSize int `yaml:"active_roster_size"`
}

func DefaultRules() Rules {
	return Rules{
		PeriodLength:     models.PeriodLength,
		ActiveRosterSize: 5,
	}
}

func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.PeriodLength <= 0 {
		r.PeriodLength = d.PeriodLength
	}
	if r.ActiveRosterSize <= 0 {
		r.ActiveRosterSize = d.ActiveRosterSize
	}
	return r
}

// EncodeTime stamps the current match time of s.
func (r Rules) EncodeTime(s models.MatchState) int {
	return models.EncodeMatchTimeFor(r.PeriodLength, s.Period, s.Time)
}
