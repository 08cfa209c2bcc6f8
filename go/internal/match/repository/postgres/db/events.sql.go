package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

const insertMatchEvent = `
INSERT INTO match_events (
    match_id, event_id, event_type, team_id, team_name,
    player_id, player_name, player_in_id, player_in_name,
    match_time, position
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (match_id, event_id) DO NOTHING
`

type InsertMatchEventParams struct {
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
}

// InsertMatchEvent reports 0 rows when the event was already stored.
func (q *Queries) InsertMatchEvent(ctx context.Context, arg InsertMatchEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertMatchEvent,
		arg.MatchID,
		arg.EventID,
		arg.EventType,
		arg.TeamID,
		arg.TeamName,
		arg.PlayerID,
		arg.PlayerName,
		arg.PlayerInID,
		arg.PlayerInName,
		arg.MatchTime,
		arg.Position,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listMatchEvents = `
SELECT seq, match_id, event_id, event_type, team_id, team_name,
       player_id, player_name, player_in_id, player_in_name,
       match_time, position, created_at
FROM match_events
WHERE match_id = $1
ORDER BY seq
`

func (q *Queries) ListMatchEvents(ctx context.Context, matchID string) ([]MatchEvent, error) {
	rows, err := q.db.QueryContext(ctx, listMatchEvents, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchEvent
	for rows.Next() {
		var i MatchEvent
		if err := rows.Scan(
			&i.Seq,
			&i.MatchID,
			&i.EventID,
			&i.EventType,
			&i.TeamID,
			&i.TeamName,
			&i.PlayerID,
			&i.PlayerName,
			&i.PlayerInID,
			&i.PlayerInName,
			&i.MatchTime,
			&i.Position,
			&i.CreatedAt,
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

const deleteMatchEventsBefore = `
DELETE FROM match_events
WHERE match_id = $1 AND created_at < $2
`

type DeleteMatchEventsBeforeParams struct {
	MatchID string
	Before  time.Time
}

func (q *Queries) DeleteMatchEventsBefore(ctx context.Context, arg DeleteMatchEventsBeforeParams) error {
	_, err := q.db.ExecContext(ctx, deleteMatchEventsBefore, arg.MatchID, arg.Before)
	return err
}
