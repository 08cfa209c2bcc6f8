package db

import (
	"context"
	"time"

	"github.com/lib/pq"
)

const getMatch = `
SELECT id, team_a_id, team_b_id, status,
       score_a, score_b, fouls_a, fouls_b, timeouts_a, timeouts_b,
       period, time_remaining, is_running,
       active_roster_a, active_roster_b, updated_at
FROM matches
WHERE id = $1
`

func (q *Queries) GetMatch(ctx context.Context, id string) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatch, id)
	var i Match
	err := row.Scan(
		&i.ID,
		&i.TeamAID,
		&i.TeamBID,
		&i.Status,
		&i.ScoreA,
		&i.ScoreB,
		&i.FoulsA,
		&i.FoulsB,
		&i.TimeoutsA,
		&i.TimeoutsB,
		&i.Period,
		&i.TimeRemaining,
		&i.IsRunning,
		pq.Array(&i.ActiveRosterA),
		pq.Array(&i.ActiveRosterB),
		&i.UpdatedAt,
	)
	return i, err
}

const createMatch = `
INSERT INTO matches (id, team_a_id, team_b_id, time_remaining, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`

type CreateMatchParams struct {
	ID            string
	TeamAID       string
	TeamBID       string
	TimeRemaining int32
	UpdatedAt     time.Time
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createMatch,
		arg.ID,
		arg.TeamAID,
		arg.TeamBID,
		arg.TimeRemaining,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Only a strictly newer snapshot replaces the stored row, so concurrent
// writers converge on the latest state.
const upsertMatchState = `
INSERT INTO matches (
    id, team_a_id, team_b_id, status,
    score_a, score_b, fouls_a, fouls_b, timeouts_a, timeouts_b,
    period, time_remaining, is_running,
    active_roster_a, active_roster_b, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    score_a = EXCLUDED.score_a,
    score_b = EXCLUDED.score_b,
    fouls_a = EXCLUDED.fouls_a,
    fouls_b = EXCLUDED.fouls_b,
    timeouts_a = EXCLUDED.timeouts_a,
    timeouts_b = EXCLUDED.timeouts_b,
    period = EXCLUDED.period,
    time_remaining = EXCLUDED.time_remaining,
    is_running = EXCLUDED.is_running,
    active_roster_a = EXCLUDED.active_roster_a,
    active_roster_b = EXCLUDED.active_roster_b,
    updated_at = EXCLUDED.updated_at
WHERE matches.updated_at < EXCLUDED.updated_at
`

type UpsertMatchStateParams struct {
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

func (q *Queries) UpsertMatchState(ctx context.Context, arg UpsertMatchStateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, upsertMatchState,
		arg.ID,
		arg.TeamAID,
		arg.TeamBID,
		arg.Status,
		arg.ScoreA,
		arg.ScoreB,
		arg.FoulsA,
		arg.FoulsB,
		arg.TimeoutsA,
		arg.TimeoutsB,
		arg.Period,
		arg.TimeRemaining,
		arg.IsRunning,
		pq.Array(arg.ActiveRosterA),
		pq.Array(arg.ActiveRosterB),
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listPlayerTimes = `
SELECT match_id, player_id, seconds_played
FROM match_player_time
WHERE match_id = $1
`

func (q *Queries) ListPlayerTimes(ctx context.Context, matchID string) ([]MatchPlayerTime, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerTimes, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchPlayerTime
	for rows.Next() {
		var i MatchPlayerTime
		if err := rows.Scan(&i.MatchID, &i.PlayerID, &i.SecondsPlayed); err != nil {
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

const upsertPlayerTime = `
INSERT INTO match_player_time (match_id, player_id, seconds_played)
VALUES ($1, $2, $3)
ON CONFLICT (match_id, player_id) DO UPDATE SET seconds_played = EXCLUDED.seconds_played
`

type UpsertPlayerTimeParams struct {
	MatchID       string
	PlayerID      string
	SecondsPlayed int32
}

func (q *Queries) UpsertPlayerTime(ctx context.Context, arg UpsertPlayerTimeParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayerTime, arg.MatchID, arg.PlayerID, arg.SecondsPlayed)
	return err
}

const deletePlayerTimes = `
DELETE FROM match_player_time WHERE match_id = $1
`

func (q *Queries) DeletePlayerTimes(ctx context.Context, matchID string) error {
	_, err := q.db.ExecContext(ctx, deletePlayerTimes, matchID)
	return err
}
