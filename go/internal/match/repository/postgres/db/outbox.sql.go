package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const insertOutboxEvent = `
INSERT INTO match_event_outbox (id, match_id, event_id, event_type, payload)
VALUES ($1, $2, $3, $4, $5)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	MatchID   string
	EventID   string
	EventType string
	Payload   json.RawMessage
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent,
		arg.ID,
		arg.MatchID,
		arg.EventID,
		arg.EventType,
		arg.Payload,
	)
	return err
}

const fetchOutboxByID = `
SELECT id, match_id, event_id, event_type, payload, created_at, sent_at
FROM match_event_outbox
WHERE id = $1
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (MatchEventOutbox, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByID, id)
	var i MatchEventOutbox
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.EventID,
		&i.EventType,
		&i.Payload,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const fetchUnsentOutbox = `
SELECT id, match_id, event_id, event_type, payload, created_at, sent_at
FROM match_event_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]MatchEventOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchEventOutbox
	for rows.Next() {
		var i MatchEventOutbox
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.EventID,
			&i.EventType,
			&i.Payload,
			&i.CreatedAt,
			&i.SentAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxSent = `
UPDATE match_event_outbox
SET sent_at = now()
WHERE id = $1 AND sent_at IS NULL
`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}

const countUnsentOutbox = `
SELECT COUNT(*) FROM match_event_outbox WHERE sent_at IS NULL
`

func (q *Queries) CountUnsentOutbox(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnsentOutbox)
	var count int64
	err := row.Scan(&count)
	return count, err
}
