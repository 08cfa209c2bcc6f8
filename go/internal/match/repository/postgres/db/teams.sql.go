package db

import (
	"context"
	"database/sql"
)

const getTeam = `
SELECT id, name, created_at
FROM teams
WHERE id = $1
`

func (q *Queries) GetTeam(ctx context.Context, id string) (Team, error) {
	row := q.db.QueryRowContext(ctx, getTeam, id)
	var i Team
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const upsertTeam = `
INSERT INTO teams (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
`

type UpsertTeamParams struct {
	ID   string
	Name string
}

func (q *Queries) UpsertTeam(ctx context.Context, arg UpsertTeamParams) error {
	_, err := q.db.ExecContext(ctx, upsertTeam, arg.ID, arg.Name)
	return err
}

const listPlayersByTeam = `
SELECT id, team_id, full_name, jersey_number, created_at
FROM players
WHERE team_id = $1
ORDER BY jersey_number NULLS LAST, full_name
`

func (q *Queries) ListPlayersByTeam(ctx context.Context, teamID string) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayersByTeam, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		var i Player
		if err := rows.Scan(&i.ID, &i.TeamID, &i.FullName, &i.JerseyNumber, &i.CreatedAt); err != nil {
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

const upsertPlayer = `
INSERT INTO players (id, team_id, full_name, jersey_number)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET team_id = EXCLUDED.team_id,
    full_name = EXCLUDED.full_name,
    jersey_number = EXCLUDED.jersey_number
`

type UpsertPlayerParams struct {
	ID           string
	TeamID       string
	FullName     string
	JerseyNumber sql.NullInt32
}

func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayer, arg.ID, arg.TeamID, arg.FullName, arg.JerseyNumber)
	return err
}
