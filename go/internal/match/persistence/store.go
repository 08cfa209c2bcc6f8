package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/futsal/go/internal/models"
)

// Store is the durable record of matches.
type Store interface {
	// LoadMatch returns the persisted snapshot: squads, match row, player
	// minutes and the event log in insertion order.
	LoadMatch(ctx context.Context, matchID string) (models.MatchState, error)
	// PersistState writes the match row and every player time row in one
	// transaction.
	PersistState(ctx context.Context, state models.MatchState) error
	EventStore
}

// EventStore appends to the durable event log. Writing the same event id
// twice for a match must be a no-op.
type EventStore interface {
	PersistEvent(ctx context.Context, matchID string, event models.GameEvent) error
}

// Cache is the replica-local snapshot cache consulted on load.
type Cache interface {
	Get(ctx context.Context, matchID string) (models.MatchState, bool, error)
	Put(ctx context.Context, state models.MatchState) error
	Delete(ctx context.Context, matchID string) error
}

const (
	OpPersistState = "persist_state"
	OpPersistEvent = "persist_event"
)

var ErrPersist = errors.New("persist failed")

// PersistError reports a failed durable write. It matches ErrPersist with
// errors.Is and unwraps to the driver error.
type PersistError struct {
	Op      string
	MatchID string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s for match %s: %v", e.Op, e.MatchID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}
