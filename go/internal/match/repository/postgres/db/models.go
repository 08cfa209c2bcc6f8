package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Player struct {
	ID           string
	TeamID       string
	FullName     string
	JerseyNumber sql.NullInt32
	CreatedAt    time.Time
}

type Match struct {
	ID            string
	TeamAID       string
	TeamBID       string
	Status        string
	ScoreA        int32
	ScoreB        int32
	FoulsA        int32
	FoulsB        int32
	TimeoutsA     int32
	TimeoutsB     int32
	Period        int16
	TimeRemaining int32
	IsRunning     bool
	ActiveRosterA []string
	ActiveRosterB []string
	UpdatedAt     time.Time
}

type MatchPlayerTime struct {
	MatchID       string
	PlayerID      string
	SecondsPlayed int32
}

type MatchEvent struct {
	Seq          int64
	MatchID      string
	EventID      string
	EventType    string
	TeamID       sql.NullString
	TeamName     sql.NullString
	PlayerID     sql.NullString
	PlayerName   sql.NullString
	PlayerInID   sql.NullString
	PlayerInName sql.NullString
	MatchTime    int32
	Position     pqtype.NullRawMessage
	CreatedAt    time.Time
}

type MatchEventOutbox struct {
	ID        uuid.UUID
	MatchID   string
	EventID   string
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}
