package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/futsal/go/internal/models"
)

type summary struct {
	Teams    int
	Players  int
	Inserted int
	Skipped  int
}

// seed upserts every team and player, then inserts scheduled matches with a
// zeroed state. Matches that already exist are left alone.
func seed(ctx context.Context, pool *pgxpool.Pool, f Fixtures) (summary, error) {
	var s summary
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, t := range f.Teams {
			if _, err := tx.Exec(ctx, `
				INSERT INTO teams (id, name) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
				t.ID, t.Name); err != nil {
				return fmt.Errorf("upsert team %s: %w", t.ID, err)
			}
			s.Teams++

			for _, p := range t.Players {
				var number *int
				if p.Number > 0 {
					number = &p.Number
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO players (id, team_id, full_name, jersey_number) VALUES ($1, $2, $3, $4)
					ON CONFLICT (id) DO UPDATE
					SET team_id = excluded.team_id, full_name = excluded.full_name, jersey_number = excluded.jersey_number`,
					p.ID, t.ID, p.Name, number); err != nil {
					return fmt.Errorf("upsert player %s: %w", p.ID, err)
				}
				s.Players++
			}
		}

		for _, m := range f.Matches {
			tag, err := tx.Exec(ctx, `
				INSERT INTO matches (id, team_a_id, team_b_id, status, time_remaining, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
				ON CONFLICT (id) DO NOTHING`,
				m.ID, m.TeamA, m.TeamB, string(models.MatchStatusScheduled), models.PeriodLength)
			if err != nil {
				return fmt.Errorf("insert match %s: %w", m.ID, err)
			}
			if tag.RowsAffected() == 1 {
				s.Inserted++
			} else {
				s.Skipped++
			}
		}
		return nil
	})
	return s, err
}
