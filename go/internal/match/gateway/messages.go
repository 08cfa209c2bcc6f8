package gateway

import "github.com/mcdev12/futsal/go/internal/models"

type MessageType string

const (
	MessageSnapshot     MessageType = "snapshot"
	MessagePersistError MessageType = "persist_error"
)

// ClockView is the scoreboard rendering of the match clock.
type ClockView struct {
	Display        string `json:"display"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

// ServerMessage is pushed to viewers of a match.
type ServerMessage struct {
	Type    MessageType        `json:"type"`
	MatchID string             `json:"match_id"`
	State   *models.MatchState `json:"state,omitempty"`
	Clock   *ClockView         `json:"clock,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func snapshotMessage(s models.MatchState, periodLength int) *ServerMessage {
	return &ServerMessage{
		Type:    MessageSnapshot,
		MatchID: s.MatchID,
		State:   &s,
		Clock: &ClockView{
			Display:        models.FormatClock(s.Time),
			ElapsedSeconds: models.ElapsedSeconds(periodLength, s.Period, s.Time),
		},
	}
}
