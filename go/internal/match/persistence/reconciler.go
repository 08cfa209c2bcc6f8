package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/models"
)

// Source tells which side won a load-time reconciliation.
type Source string

const (
	SourceDurable Source = "durable"
	SourceCache   Source = "cache"
)

// Reconcile picks the authoritative snapshot. The durable one wins only when
// strictly newer than the local one; on a tie the local cache is kept. The
// winner is taken whole, events included.
func Reconcile(local *models.MatchState, durable models.MatchState) (models.MatchState, Source) {
	if local == nil || durable.UpdatedAt.After(local.UpdatedAt) {
		return durable, SourceDurable
	}
	return local.Clone(), SourceCache
}

type Reconciler struct {
	store Store
	cache Cache
}

// NewReconciler wires the durable store with an optional local cache.
func NewReconciler(store Store, cache Cache) *Reconciler {
	return &Reconciler{store: store, cache: cache}
}

// Load reads both snapshots and returns the reconciled one. An unreachable
// durable store falls back to the cache so scoring can continue offline; an
// unknown match is always an error.
func (r *Reconciler) Load(ctx context.Context, matchID string) (models.MatchState, Source, error) {
	local := r.cached(ctx, matchID)

	durable, err := r.store.LoadMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, models.ErrMatchNotFound) || local == nil {
			return models.MatchState{}, "", fmt.Errorf("load match %s: %w", matchID, err)
		}
		log.Warn().Err(err).Str("match_id", matchID).Msg("durable store unavailable, resuming from local cache")
		return local.Clone(), SourceCache, nil
	}

	state, src := Reconcile(local, durable)
	log.Info().
		Str("match_id", matchID).
		Str("source", string(src)).
		Time("updated_at", state.UpdatedAt).
		Msg("match state reconciled")
	return state, src, nil
}

func (r *Reconciler) cached(ctx context.Context, matchID string) *models.MatchState {
	if r.cache == nil {
		return nil
	}
	s, ok, err := r.cache.Get(ctx, matchID)
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("failed to read cached snapshot, ignoring cache")
		return nil
	}
	if !ok {
		return nil
	}
	return &s
}

// Flush writes the snapshot to the durable store.
func (r *Reconciler) Flush(ctx context.Context, state models.MatchState) error {
	if err := r.store.PersistState(ctx, state); err != nil {
		return &PersistError{Op: OpPersistState, MatchID: state.MatchID, Err: err}
	}
	return nil
}
