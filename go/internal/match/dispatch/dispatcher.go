package dispatch

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/mcdev12/futsal/go/internal/match/statestore"
	"github.com/mcdev12/futsal/go/internal/models"
)

var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrUnknownTeam   = errors.New("unknown team")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotLive       = errors.New("match is not live")
)

// Ignorable reports whether err only means the action referenced a team or
// player that does not exist, or arrived while the match was not live. The
// engine drops such actions as no-ops instead of surfacing them.
func Ignorable(err error) bool {
	return errors.Is(err, ErrUnknownTeam) ||
		errors.Is(err, ErrUnknownPlayer) ||
		errors.Is(err, ErrNotLive)
}

// Dispatcher turns caller supplied actions into fully formed ones: it
// validates event payloads against the current rosters, assigns ids and
// stamps match time. The reducer then only sees well formed input.
type Dispatcher struct {
	rules statestore.Rules
	newID func() string
}

type Option func(*Dispatcher)

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		d.newID = fn
	}
}

func New(rules statestore.Rules, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rules: statestore.NewReducer(rules).Rules(),
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prepare validates action against state and fills in the fields the caller
// is not trusted with. Actions that need no preparation pass through.
func (d *Dispatcher) Prepare(state models.MatchState, action statestore.Action) (statestore.Action, error) {
	switch a := action.(type) {
	case statestore.AddEvent:
		ev, err := d.stampEvent(state, a.Event)
		if err != nil {
			return nil, err
		}
		return statestore.AddEvent{Event: ev}, nil
	case statestore.CompleteSubstitution:
		if a.EventID == "" {
			a.EventID = d.newID()
		}
		return a, nil
	case statestore.SetStatus:
		if err := d.rules.CheckTransition(state, a.Status); err != nil {
			return nil, err
		}
	}
	return action, nil
}

func (d *Dispatcher) stampEvent(state models.MatchState, in models.GameEvent) (models.GameEvent, error) {
	if !in.Type.Valid() {
		return models.GameEvent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, in.Type)
	}
	if in.Type == models.EventTypeSubstitution {
		return models.GameEvent{}, fmt.Errorf("%w: substitutions are recorded by completing one", ErrInvalidEvent)
	}

	ev := models.GameEvent{
		ID:   in.ID,
		Type: in.Type,
	}
	if ev.ID == "" {
		ev.ID = d.newID()
	}

	if in.Type.TeamScoped() {
		if state.Status != models.MatchStatusLive {
			return models.GameEvent{}, fmt.Errorf("%w: %s", ErrNotLive, state.Status)
		}
		side, ok := state.SideOf(in.TeamID)
		if !ok {
			return models.GameEvent{}, fmt.Errorf("%w: %q", ErrUnknownTeam, in.TeamID)
		}
		team := state.Team(side)
		ev.TeamID = team.ID
		ev.TeamName = team.Name

		if in.PlayerID != "" {
			p, ok := team.Player(in.PlayerID)
			if !ok {
				return models.GameEvent{}, fmt.Errorf("%w: %q not in %s", ErrUnknownPlayer, in.PlayerID, team.Name)
			}
			ev.PlayerID = p.ID
			ev.PlayerName = p.Name
		}
	} else if in.TeamID != "" || in.PlayerID != "" {
		return models.GameEvent{}, fmt.Errorf("%w: %s takes no team or player", ErrInvalidEvent, in.Type)
	}

	if in.Position != nil {
		if !onPitch(in.Position.X) || !onPitch(in.Position.Y) {
			return models.GameEvent{}, fmt.Errorf("%w: position (%v, %v) off the pitch", ErrInvalidEvent, in.Position.X, in.Position.Y)
		}
		p := *in.Position
		ev.Position = &p
	}

	ev.Timestamp = d.rules.EncodeTime(state)
	return ev, nil
}

func onPitch(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}
