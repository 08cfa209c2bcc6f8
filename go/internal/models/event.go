package models

// EventType enumerates match events
type EventType string

const (
	EventTypeGoal         EventType = "GOAL"
	EventTypeAssist       EventType = "ASSIST"
	EventTypeFoul         EventType = "FOUL"
	EventTypeYellowCard   EventType = "YELLOW_CARD"
	EventTypeRedCard      EventType = "RED_CARD"
	EventTypeTimeout      EventType = "TIMEOUT"
	EventTypeSubstitution EventType = "SUBSTITUTION"
	EventTypeShot         EventType = "SHOT"
	EventTypeSave         EventType = "SAVE"
	EventTypeMatchStart   EventType = "MATCH_START"
	EventTypePeriodStart  EventType = "PERIOD_START"
	EventTypeMatchEnd     EventType = "MATCH_END"
)

var eventTypes = map[EventType]struct{}{
	EventTypeGoal:         {},
	EventTypeAssist:       {},
	EventTypeFoul:         {},
	EventTypeYellowCard:   {},
	EventTypeRedCard:      {},
	EventTypeTimeout:      {},
	EventTypeSubstitution: {},
	EventTypeShot:         {},
	EventTypeSave:         {},
	EventTypeMatchStart:   {},
	EventTypePeriodStart:  {},
	EventTypeMatchEnd:     {},
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// TeamScoped reports whether events of this type must name one of the two teams.
func (t EventType) TeamScoped() bool {
	switch t {
	case EventTypeMatchStart, EventTypePeriodStart, EventTypeMatchEnd:
		return false
	}
	return true
}

// Position is an optional pitch coordinate, both axes in percent of the pitch.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GameEvent is an entry of the match event log. Timestamp uses the match-time
// encoding from EncodeMatchTime.
type GameEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TeamID       string    `json:"team_id,omitempty"`
	TeamName     string    `json:"team_name,omitempty"`
	PlayerID     string    `json:"player_id,omitempty"`
	PlayerName   string    `json:"player_name,omitempty"`
	PlayerInID   string    `json:"player_in_id,omitempty"`
	PlayerInName string    `json:"player_in_name,omitempty"`
	Timestamp    int       `json:"timestamp"`
	Position     *Position `json:"position,omitempty"`
}

func (e GameEvent) clone() GameEvent {
	if e.Position != nil {
		p := *e.Position
		e.Position = &p
	}
	return e
}
