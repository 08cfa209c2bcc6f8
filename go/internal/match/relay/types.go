package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/futsal/go/internal/match/repository/postgres/db"
)

// OutboxEvent is a stored match event waiting to be announced.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   string          `json:"match_id"`
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func fromRow(row db.MatchEventOutbox) OutboxEvent {
	return OutboxEvent{
		ID:        row.ID,
		MatchID:   row.MatchID,
		EventID:   row.EventID,
		EventType: row.EventType,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// OutboxQueries is the slice of the generated queries the relay reads and
// marks rows with.
type OutboxQueries interface {
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (db.MatchEventOutbox, error)
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]db.MatchEventOutbox, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	CountUnsentOutbox(ctx context.Context) (int64, error)
}
