package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/futsal/go/internal/match/repository/postgres/db"
	"github.com/mcdev12/futsal/go/internal/models"
	"github.com/mcdev12/futsal/go/internal/sqlutil"
)

// Repository is the Postgres backed match store.
type Repository struct {
	db *sql.DB
}

func NewRepository(sqlDB *sql.DB) *Repository {
	return &Repository{db: sqlDB}
}

func newQueries(tx *sql.Tx) *db.Queries {
	return db.New(tx)
}

// LoadMatch reads the match row, both squads, player minutes and the event
// log inside one transaction.
func (r *Repository) LoadMatch(ctx context.Context, matchID string) (models.MatchState, error) {
	var state models.MatchState
	err := sqlutil.Run(ctx, r.db, newQueries, func(q *db.Queries) error {
		m, err := q.GetMatch(ctx, matchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrMatchNotFound
			}
			return fmt.Errorf("get match: %w", err)
		}

		teamA, err := loadTeam(ctx, q, m.TeamAID)
		if err != nil {
			return err
		}
		teamB, err := loadTeam(ctx, q, m.TeamBID)
		if err != nil {
			return err
		}

		times, err := q.ListPlayerTimes(ctx, matchID)
		if err != nil {
			return fmt.Errorf("list player times: %w", err)
		}
		events, err := q.ListMatchEvents(ctx, matchID)
		if err != nil {
			return fmt.Errorf("list match events: %w", err)
		}

		state = matchFromRows(m, teamA, teamB, times, events)
		return nil
	})
	if err != nil {
		return models.MatchState{}, err
	}
	return state, nil
}

func loadTeam(ctx context.Context, q *db.Queries, teamID string) (models.Team, error) {
	t, err := q.GetTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, fmt.Errorf("get team %s: %w", teamID, err)
	}
	players, err := q.ListPlayersByTeam(ctx, teamID)
	if err != nil {
		return models.Team{}, fmt.Errorf("list players of team %s: %w", teamID, err)
	}
	return teamFromRows(t, players), nil
}

// PersistState writes the match row and the player minutes atomically. A row
// already carrying a newer or equal updated_at is left untouched.
func (r *Repository) PersistState(ctx context.Context, state models.MatchState) error {
	return sqlutil.Run(ctx, r.db, newQueries, func(q *db.Queries) error {
		n, err := q.UpsertMatchState(ctx, matchStateParams(state))
		if err != nil {
			return fmt.Errorf("upsert match: %w", err)
		}
		if n == 0 {
			log.Debug().
				Str("match_id", state.MatchID).
				Time("updated_at", state.UpdatedAt).
				Msg("stored match state is newer, skipping write")
			return nil
		}

		if err := q.DeletePlayerTimes(ctx, state.MatchID); err != nil {
			return fmt.Errorf("clear player times: %w", err)
		}
		for playerID, secs := range state.PlayerTimeTracker {
			if err := q.UpsertPlayerTime(ctx, db.UpsertPlayerTimeParams{
				MatchID:       state.MatchID,
				PlayerID:      playerID,
				SecondsPlayed: int32(secs),
			}); err != nil {
				return fmt.Errorf("upsert player time %s: %w", playerID, err)
			}
		}

		// An empty log after events were written means the match was reset.
		// Events stored after the reset carry a later created_at and survive.
		if len(state.Events) == 0 {
			if err := q.DeleteMatchEventsBefore(ctx, db.DeleteMatchEventsBeforeParams{
				MatchID: state.MatchID,
				Before:  state.UpdatedAt,
			}); err != nil {
				return fmt.Errorf("clear match events: %w", err)
			}
		}
		return nil
	})
}

// PersistEvent appends an event and its outbox row. Re-sending an event id
// already stored for the match is a no-op.
func (r *Repository) PersistEvent(ctx context.Context, matchID string, event models.GameEvent) error {
	params, err := eventParams(matchID, event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	return sqlutil.Run(ctx, r.db, newQueries, func(q *db.Queries) error {
		n, err := q.InsertMatchEvent(ctx, params)
		if err != nil {
			return fmt.Errorf("insert match event: %w", err)
		}
		if n == 0 {
			return nil
		}
		return q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
			ID:        uuid.New(),
			MatchID:   matchID,
			EventID:   event.ID,
			EventType: string(event.Type),
			Payload:   payload,
		})
	})
}

// CreateMatch registers both squads and a scheduled match row. Creating a
// match id that already exists leaves the stored match as it is.
func (r *Repository) CreateMatch(ctx context.Context, state models.MatchState) (bool, error) {
	var created bool
	err := sqlutil.Run(ctx, r.db, newQueries, func(q *db.Queries) error {
		for _, team := range []models.Team{state.TeamA, state.TeamB} {
			if err := upsertTeam(ctx, q, team); err != nil {
				return err
			}
		}
		n, err := q.CreateMatch(ctx, db.CreateMatchParams{
			ID:            state.MatchID,
			TeamAID:       state.TeamA.ID,
			TeamBID:       state.TeamB.ID,
			TimeRemaining: int32(state.Time),
			UpdatedAt:     state.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		created = n > 0
		return nil
	})
	return created, err
}

func upsertTeam(ctx context.Context, q *db.Queries, team models.Team) error {
	if err := q.UpsertTeam(ctx, db.UpsertTeamParams{ID: team.ID, Name: team.Name}); err != nil {
		return fmt.Errorf("upsert team %s: %w", team.ID, err)
	}
	for _, p := range team.Players {
		if err := q.UpsertPlayer(ctx, db.UpsertPlayerParams{
			ID:           p.ID,
			TeamID:       team.ID,
			FullName:     p.Name,
			JerseyNumber: sqlutil.ToNullInt32(p.Number),
		}); err != nil {
			return fmt.Errorf("upsert player %s: %w", p.ID, err)
		}
	}
	return nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func teamFromRows(t db.Team, players []db.Player) models.Team {
	out := models.Team{ID: t.ID, Name: t.Name, Players: make([]models.Player, 0, len(players))}
	for _, p := range players {
		out.Players = append(out.Players, models.Player{
			ID:     p.ID,
			Name:   p.FullName,
			Number: sqlutil.FromNullInt32(p.JerseyNumber),
		})
	}
	return out
}

func matchFromRows(m db.Match, teamA, teamB models.Team, times []db.MatchPlayerTime, events []db.MatchEvent) models.MatchState {
	state := models.MatchState{
		MatchID:           m.ID,
		TeamA:             teamA,
		TeamB:             teamB,
		Status:            models.MatchStatus(m.Status),
		ScoreA:            int(m.ScoreA),
		ScoreB:            int(m.ScoreB),
		FoulsA:            int(m.FoulsA),
		FoulsB:            int(m.FoulsB),
		TimeoutsA:         int(m.TimeoutsA),
		TimeoutsB:         int(m.TimeoutsB),
		Period:            int(m.Period),
		Time:              int(m.TimeRemaining),
		IsRunning:         m.IsRunning,
		ActiveRosterA:     nonNil(m.ActiveRosterA),
		ActiveRosterB:     nonNil(m.ActiveRosterB),
		PlayerTimeTracker: make(map[string]int, len(times)),
		Events:            make([]models.GameEvent, 0, len(events)),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
	for _, pt := range times {
		state.PlayerTimeTracker[pt.PlayerID] = int(pt.SecondsPlayed)
	}
	for _, e := range events {
		state.Events = append(state.Events, eventFromRow(e))
	}
	return state
}

func eventFromRow(e db.MatchEvent) models.GameEvent {
	ev := models.GameEvent{
		ID:           e.EventID,
		Type:         models.EventType(e.EventType),
		TeamID:       sqlutil.FromNullString(e.TeamID),
		TeamName:     sqlutil.FromNullString(e.TeamName),
		PlayerID:     sqlutil.FromNullString(e.PlayerID),
		PlayerName:   sqlutil.FromNullString(e.PlayerName),
		PlayerInID:   sqlutil.FromNullString(e.PlayerInID),
		PlayerInName: sqlutil.FromNullString(e.PlayerInName),
		Timestamp:    int(e.MatchTime),
	}
	if e.Position.Valid {
		var pos models.Position
		if err := json.Unmarshal(e.Position.RawMessage, &pos); err != nil {
			log.Warn().Err(err).Str("event_id", e.EventID).Msg("dropping unreadable event position")
		} else {
			ev.Position = &pos
		}
	}
	return ev
}

func matchStateParams(s models.MatchState) db.UpsertMatchStateParams {
	return db.UpsertMatchStateParams{
		ID:            s.MatchID,
		TeamAID:       s.TeamA.ID,
		TeamBID:       s.TeamB.ID,
		Status:        string(s.Status),
		ScoreA:        int32(s.ScoreA),
		ScoreB:        int32(s.ScoreB),
		FoulsA:        int32(s.FoulsA),
		FoulsB:        int32(s.FoulsB),
		TimeoutsA:     int32(s.TimeoutsA),
		TimeoutsB:     int32(s.TimeoutsB),
		Period:        int16(s.Period),
		TimeRemaining: int32(s.Time),
		IsRunning:     s.IsRunning,
		// pq.Array encodes a nil slice as NULL, which the NOT NULL column rejects.
		ActiveRosterA: nonNil(s.ActiveRosterA),
		ActiveRosterB: nonNil(s.ActiveRosterB),
		UpdatedAt:     s.UpdatedAt.UTC().Truncate(time.Microsecond),
	}
}

func eventParams(matchID string, e models.GameEvent) (db.InsertMatchEventParams, error) {
	params := db.InsertMatchEventParams{
		MatchID:      matchID,
		EventID:      e.ID,
		EventType:    string(e.Type),
		TeamID:       sqlutil.ToNullString(e.TeamID),
		TeamName:     sqlutil.ToNullString(e.TeamName),
		PlayerID:     sqlutil.ToNullString(e.PlayerID),
		PlayerName:   sqlutil.ToNullString(e.PlayerName),
		PlayerInID:   sqlutil.ToNullString(e.PlayerInID),
		PlayerInName: sqlutil.ToNullString(e.PlayerInName),
		MatchTime:    int32(e.Timestamp),
	}
	if e.Position != nil {
		raw, err := json.Marshal(e.Position)
		if err != nil {
			return db.InsertMatchEventParams{}, fmt.Errorf("marshal position: %w", err)
		}
		params.Position = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return params, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
