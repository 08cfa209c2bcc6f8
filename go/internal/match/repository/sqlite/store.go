package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps matches in a single SQLite file. It backs a replica that scores
// without a database server and serves as the local durable store in tests.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

type Option func(*Store)

// WithClock sets the clock stamping event insert times.
func WithClock(clk clockwork.Clock) Option {
	return func(s *Store) { s.clock = clk }
}

// Open creates or opens the database at path and applies the schema.
//
// The database runs in WAL mode with NORMAL synchronous writes, a 5 second
// busy timeout and foreign keys enforced.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const selectMatch = `
SELECT team_a, team_b, status, score_a, score_b, fouls_a, fouls_b,
       timeouts_a, timeouts_b, period, time_remaining, is_running,
       active_roster_a, active_roster_b, updated_at
FROM matches WHERE id = ?`

func (s *Store) LoadMatch(ctx context.Context, matchID string) (models.MatchState, error) {
	state := models.MatchState{MatchID: matchID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			teamA, teamB, rosterA, rosterB string
			updatedAt                      int64
		)
		err := tx.QueryRowContext(ctx, selectMatch, matchID).Scan(
			&teamA, &teamB, &state.Status,
			&state.ScoreA, &state.ScoreB, &state.FoulsA, &state.FoulsB,
			&state.TimeoutsA, &state.TimeoutsB, &state.Period, &state.Time,
			&state.IsRunning, &rosterA, &rosterB, &updatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrMatchNotFound
		}
		if err != nil {
			return fmt.Errorf("select match: %w", err)
		}
		state.UpdatedAt = time.UnixMicro(updatedAt).UTC()

		for _, col := range []struct {
			raw string
			dst any
		}{
			{teamA, &state.TeamA},
			{teamB, &state.TeamB},
			{rosterA, &state.ActiveRosterA},
			{rosterB, &state.ActiveRosterB},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
				return fmt.Errorf("decode match column: %w", err)
			}
		}

		if state.PlayerTimeTracker, err = loadPlayerTimes(ctx, tx, matchID); err != nil {
			return err
		}
		state.Events, err = loadEvents(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return models.MatchState{}, err
	}
	if state.ActiveRosterA == nil {
		state.ActiveRosterA = []string{}
	}
	if state.ActiveRosterB == nil {
		state.ActiveRosterB = []string{}
	}
	return state, nil
}

func loadPlayerTimes(ctx context.Context, tx *sql.Tx, matchID string) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT player_id, seconds_played FROM match_player_time WHERE match_id = ?`, matchID)
	if err != nil {
		return nil, fmt.Errorf("select player times: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			id   string
			secs int
		)
		if err := rows.Scan(&id, &secs); err != nil {
			return nil, err
		}
		out[id] = secs
	}
	return out, rows.Err()
}

func loadEvents(ctx context.Context, tx *sql.Tx, matchID string) ([]models.GameEvent, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT payload FROM match_events WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	out := []models.GameEvent{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev models.GameEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

const upsertMatch = `
INSERT INTO matches (
    id, team_a, team_b, status, score_a, score_b, fouls_a, fouls_b,
    timeouts_a, timeouts_b, period, time_remaining, is_running,
    active_roster_a, active_roster_b, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET team_a = excluded.team_a,
    team_b = excluded.team_b,
    status = excluded.status,
    score_a = excluded.score_a,
    score_b = excluded.score_b,
    fouls_a = excluded.fouls_a,
    fouls_b = excluded.fouls_b,
    timeouts_a = excluded.timeouts_a,
    timeouts_b = excluded.timeouts_b,
    period = excluded.period,
    time_remaining = excluded.time_remaining,
    is_running = excluded.is_running,
    active_roster_a = excluded.active_roster_a,
    active_roster_b = excluded.active_roster_b,
    updated_at = excluded.updated_at
WHERE matches.updated_at < excluded.updated_at`

// PersistState writes the match row and player minutes atomically. A stored
// row with a newer or equal updated_at wins and the call is a no-op.
func (s *Store) PersistState(ctx context.Context, state models.MatchState) error {
	args, err := matchArgs(state)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, upsertMatch, args...)
		if err != nil {
			return fmt.Errorf("upsert match: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			log.Debug().Str("match_id", state.MatchID).Msg("stored match state is newer, skipping write")
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM match_player_time WHERE match_id = ?`, state.MatchID); err != nil {
			return fmt.Errorf("clear player times: %w", err)
		}
		for id, secs := range state.PlayerTimeTracker {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO match_player_time (match_id, player_id, seconds_played) VALUES (?, ?, ?)`,
				state.MatchID, id, secs); err != nil {
				return fmt.Errorf("insert player time %s: %w", id, err)
			}
		}

		if len(state.Events) == 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM match_events WHERE match_id = ? AND created_at < ?`,
				state.MatchID, state.UpdatedAt.UnixMicro()); err != nil {
				return fmt.Errorf("clear events: %w", err)
			}
		}
		return nil
	})
}

// PersistEvent appends an event unless its id is already stored for the match.
func (s *Store) PersistEvent(ctx context.Context, matchID string, event models.GameEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO match_events (match_id, event_id, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (match_id, event_id) DO NOTHING`,
		matchID, event.ID, string(payload), s.clock.Now().UnixMicro())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CreateMatch inserts a new match row. It reports false and leaves the row
// alone when the id already exists.
func (s *Store) CreateMatch(ctx context.Context, state models.MatchState) (bool, error) {
	args, err := matchArgs(state)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (
		    id, team_a, team_b, status, score_a, score_b, fouls_a, fouls_b,
		    timeouts_a, timeouts_b, period, time_remaining, is_running,
		    active_roster_a, active_roster_b, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, args...)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func matchArgs(s models.MatchState) ([]any, error) {
	encoded := make([]string, 0, 4)
	for _, v := range []any{s.TeamA, s.TeamB, nonNil(s.ActiveRosterA), nonNil(s.ActiveRosterB)} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode match column: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	return []any{
		s.MatchID, encoded[0], encoded[1], string(s.Status),
		s.ScoreA, s.ScoreB, s.FoulsA, s.FoulsB, s.TimeoutsA, s.TimeoutsB,
		s.Period, s.Time, s.IsRunning, encoded[2], encoded[3],
		s.UpdatedAt.UnixMicro(),
	}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
