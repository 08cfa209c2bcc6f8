package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/match/clock"
	"github.com/mcdev12/futsal/go/internal/match/dispatch"
	"github.com/mcdev12/futsal/go/internal/match/replication"
	"github.com/mcdev12/futsal/go/internal/match/statestore"
	"github.com/mcdev12/futsal/go/internal/models"
)

var ErrClosed = errors.New("match engine closed")

type Config struct {
	ReplicaID string
	// RunClock makes this replica the clock driver. Run exactly one driver
	// per match; other replicas follow its snapshots.
	RunClock       bool
	Rules          statestore.Rules
	MaxTickElapsed time.Duration
	// SaveInterval is the periodic checkpoint interval, zero disables it.
	SaveInterval time.Duration
}

// EventSink receives every event newly appended to the log.
type EventSink interface {
	Enqueue(matchID string, event models.GameEvent)
}

// Flusher writes checkpoints of the whole state.
type Flusher interface {
	Flush(ctx context.Context, state models.MatchState) error
}

type Deps struct {
	Clock   clockwork.Clock
	Bus     replication.Bus
	Events  EventSink
	Flusher Flusher
	// OnPersistError is told about failed background checkpoints.
	OnPersistError func(matchID string, err error)
	// IDGenerator overrides event id generation.
	IDGenerator func() string
}

// Listener receives a private copy of every new snapshot, in commit order.
// It runs on the committing goroutine: it may call GetState but must not
// call Dispatch synchronously.
type Listener func(models.MatchState)

// MatchEngine owns the live state of one match on this replica. All
// mutations are serialized; listeners and peers observe them in order.
type MatchEngine struct {
	matchID    string
	cfg        Config
	deps       Deps
	clock      clockwork.Clock
	reducer    statestore.Reducer
	dispatcher *dispatch.Dispatcher
	matchClock *clock.Clock
	saver      *saver

	mu           sync.Mutex
	state        models.MatchState
	version      uint64
	listeners    map[uint64]Listener
	nextListener uint64
	sub          replication.Subscription
	started      bool
	closed       bool

	// emitMu is taken before mu is released so that snapshots leave the
	// engine in the order they were committed.
	emitMu sync.Mutex
}

func New(initial models.MatchState, cfg Config, deps Deps) *MatchEngine {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	var opts []dispatch.Option
	if deps.IDGenerator != nil {
		opts = append(opts, dispatch.WithIDGenerator(deps.IDGenerator))
	}

	e := &MatchEngine{
		matchID:    initial.MatchID,
		cfg:        cfg,
		deps:       deps,
		clock:      deps.Clock,
		reducer:    statestore.NewReducer(cfg.Rules),
		dispatcher: dispatch.New(cfg.Rules, opts...),
		state:      initial.Clone(),
		listeners:  make(map[uint64]Listener),
	}
	e.matchClock = clock.New(initial.MatchID, deps.Clock, e, clock.WithMaxElapsed(cfg.MaxTickElapsed))
	e.saver = newSaver(e, cfg.SaveInterval)
	return e
}

func (e *MatchEngine) MatchID() string {
	return e.matchID
}

// Start joins replication, catches the clock up on time that passed while
// nobody was driving it and begins periodic checkpoints.
func (e *MatchEngine) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if e.deps.Bus != nil {
		sub, err := e.deps.Bus.Subscribe(e.matchID, e.handleRemote)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.sub = sub
		e.mu.Unlock()
	}

	e.mu.Lock()
	caughtUp := e.catchUpLocked()
	e.syncClockLocked()
	if caughtUp {
		e.commitLocked(nil, true, false)
	} else {
		e.mu.Unlock()
	}

	e.saver.start()
	log.Info().
		Str("match_id", e.matchID).
		Str("replica_id", e.cfg.ReplicaID).
		Bool("clock_driver", e.cfg.RunClock).
		Msg("match engine started")
	return nil
}

// catchUpLocked applies the wall time elapsed since the last update of a
// running clock. It is not bounded by MaxTickElapsed.
func (e *MatchEngine) catchUpLocked() bool {
	s := e.state
	if !e.cfg.RunClock || !s.IsRunning || s.Status != models.MatchStatusLive || s.UpdatedAt.IsZero() {
		return false
	}
	secs := int(e.clock.Since(s.UpdatedAt) / time.Second)
	if secs <= 0 {
		return false
	}
	if !e.applyLocked(statestore.Tick{Seconds: secs}) {
		return false
	}
	log.Info().
		Str("match_id", e.matchID).
		Int("seconds", secs).
		Int("time", e.state.Time).
		Msg("caught up running clock")
	return true
}

// Dispatch validates and applies an action. It reports whether the state
// changed. Actions naming an unknown team or player, and team events outside
// a live match, are no-ops like any other the reducer ignores; malformed
// events and illegal status transitions are returned as errors.
func (e *MatchEngine) Dispatch(action statestore.Action) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrClosed
	}

	prepared, err := e.dispatcher.Prepare(e.state, action)
	if err != nil {
		e.mu.Unlock()
		if dispatch.Ignorable(err) {
			log.Debug().Err(err).Str("match_id", e.matchID).Str("action", string(action.Type())).Msg("action ignored")
			return false, nil
		}
		log.Debug().Err(err).Str("match_id", e.matchID).Str("action", string(action.Type())).Msg("action rejected")
		return false, err
	}

	before := len(e.state.Events)
	prevStatus, prevPeriod := e.state.Status, e.state.Period
	if !e.applyLocked(prepared) {
		e.mu.Unlock()
		return false, nil
	}

	var added []models.GameEvent
	if len(e.state.Events) > before {
		added = append(added, e.state.Events[before:]...)
	}
	checkpoint := e.state.Status != prevStatus ||
		e.state.Period != prevPeriod ||
		prepared.Type() == statestore.ActionResetState

	log.Debug().
		Str("match_id", e.matchID).
		Str("action", string(prepared.Type())).
		Msg("action applied")
	e.commitLocked(added, true, checkpoint)
	return true, nil
}

// Rules returns the match rules with defaults applied.
func (e *MatchEngine) Rules() statestore.Rules {
	return e.reducer.Rules()
}

// GetState returns a copy of the current snapshot.
func (e *MatchEngine) GetState() models.MatchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Subscribe registers a listener and returns its unsubscribe func.
func (e *MatchEngine) Subscribe(l Listener) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = l
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// ClockTick implements clock.Target.
func (e *MatchEngine) ClockTick(gen uint64, seconds int) {
	e.mu.Lock()
	if e.closed || !e.matchClock.Active(gen) {
		e.mu.Unlock()
		return
	}
	if !e.applyLocked(statestore.Tick{Seconds: seconds}) {
		e.mu.Unlock()
		return
	}
	// reaching zero ends the period, worth a checkpoint
	e.commitLocked(nil, true, e.state.Time == 0)
}

func (e *MatchEngine) handleRemote(data []byte) {
	env, err := replication.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("match_id", e.matchID).Msg("dropping replication message")
		return
	}
	if env.ReplicaID == e.cfg.ReplicaID {
		return
	}
	if env.MatchID != e.matchID {
		log.Warn().Str("match_id", e.matchID).Str("message_match_id", env.MatchID).Msg("dropping replication message for another match")
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	merged, replaced := replication.Merge(e.state, env.State)
	if !replaced {
		e.mu.Unlock()
		return
	}
	e.state = merged
	e.version++
	e.syncClockLocked()

	log.Debug().
		Str("match_id", e.matchID).
		Str("from_replica", env.ReplicaID).
		Time("updated_at", merged.UpdatedAt).
		Msg("merged remote snapshot")
	e.commitLocked(nil, false, false)
}

// applyLocked reduces action into the state and stamps it. Callers hold mu.
func (e *MatchEngine) applyLocked(action statestore.Action) bool {
	next, changed := e.reducer.Reduce(e.state, action)
	if !changed {
		return false
	}
	next.UpdatedAt = e.nextStamp(e.state.UpdatedAt)
	e.state = next
	e.version++
	e.syncClockLocked()
	return true
}

// nextStamp returns a strictly increasing update time at the microsecond
// precision the durable store keeps.
func (e *MatchEngine) nextStamp(prev time.Time) time.Time {
	now := e.clock.Now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// syncClockLocked runs the countdown exactly while the state says it runs.
func (e *MatchEngine) syncClockLocked() {
	if !e.cfg.RunClock {
		return
	}
	s := e.state
	if !e.closed && s.IsRunning && s.Time > 0 && s.Status == models.MatchStatusLive {
		e.matchClock.Start()
		return
	}
	e.matchClock.Stop()
}

// commitLocked hands the current snapshot to the outside world and releases
// mu. Called with mu held.
func (e *MatchEngine) commitLocked(added []models.GameEvent, publish, checkpoint bool) {
	snap := e.state.Clone()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}

	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	if e.deps.Events != nil {
		for _, ev := range added {
			e.deps.Events.Enqueue(e.matchID, ev)
		}
	}
	for _, l := range listeners {
		l(snap.Clone())
	}
	if publish {
		e.publish(snap)
	}
	if checkpoint {
		e.saver.trigger()
	}
}

func (e *MatchEngine) publish(snap models.MatchState) {
	if e.deps.Bus == nil {
		return
	}
	data, err := replication.Encode(replication.Envelope{
		ReplicaID: e.cfg.ReplicaID,
		MatchID:   e.matchID,
		SentAt:    e.clock.Now().UTC(),
		State:     snap,
	})
	if err != nil {
		log.Error().Err(err).Str("match_id", e.matchID).Msg("failed to encode snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := e.deps.Bus.Publish(ctx, e.matchID, data); err != nil {
		log.Error().Err(err).Str("match_id", e.matchID).Msg("failed to publish snapshot")
	}
}

const publishTimeout = 2 * time.Second

func (e *MatchEngine) snapshotVersion() (models.MatchState, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), e.version
}

// Save flushes the current state to the durable store now.
func (e *MatchEngine) Save(ctx context.Context) error {
	return e.saver.flush(ctx, true)
}

// Close stops the clock and replication, then writes a final checkpoint.
func (e *MatchEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.matchClock.Stop()
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("match_id", e.matchID).Msg("failed to unsubscribe from replication")
		}
	}
	e.matchClock.Wait()
	e.saver.stop()

	err := e.saver.flush(ctx, false)
	log.Info().Str("match_id", e.matchID).Msg("match engine closed")
	return err
}
