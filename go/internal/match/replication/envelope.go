package replication

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/futsal/go/internal/models"
)

var ErrMalformed = errors.New("malformed replication message")

// Envelope carries a whole match snapshot between replicas.
type Envelope struct {
	ReplicaID string            `json:"replicaId"`
	MatchID   string            `json:"matchId"`
	SentAt    time.Time         `json:"sentAt"`
	State     models.MatchState `json:"state"`
}

func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Decode parses and sanity checks an envelope. Anything that could not have
// been produced by a healthy replica is rejected with ErrMalformed.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate(env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func validate(env Envelope) error {
	s := env.State
	switch {
	case env.ReplicaID == "":
		return fmt.Errorf("%w: missing replica id", ErrMalformed)
	case env.MatchID == "":
		return fmt.Errorf("%w: missing match id", ErrMalformed)
	case s.MatchID != env.MatchID:
		return fmt.Errorf("%w: state is for match %q, envelope for %q", ErrMalformed, s.MatchID, env.MatchID)
	case s.UpdatedAt.IsZero():
		return fmt.Errorf("%w: state has no updated_at", ErrMalformed)
	case !s.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrMalformed, s.Status)
	case s.Period != 1 && s.Period != 2:
		return fmt.Errorf("%w: period %d", ErrMalformed, s.Period)
	case s.Time < 0:
		return fmt.Errorf("%w: negative time %d", ErrMalformed, s.Time)
	}
	return nil
}

// Merge applies last-writer-wins: incoming replaces local only when it is
// strictly newer. Equal timestamps keep local.
func Merge(local, incoming models.MatchState) (models.MatchState, bool) {
	if incoming.UpdatedAt.After(local.UpdatedAt) {
		return incoming.Clone(), true
	}
	return local, false
}
