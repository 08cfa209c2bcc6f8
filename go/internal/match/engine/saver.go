package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const checkpointTimeout = 10 * time.Second

// saver writes checkpoints of one engine: on demand, on trigger and every
// interval when the state changed since the last successful write. Flushes
// are serialized and always take the newest snapshot, so a slow write can
// never overwrite a newer one.
type saver struct {
	e        *MatchEngine
	interval time.Duration

	flushMu   sync.Mutex
	saved     uint64
	savedOnce bool

	mu        sync.Mutex
	started   bool
	triggerCh chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func newSaver(e *MatchEngine, interval time.Duration) *saver {
	return &saver{
		e:         e,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *saver) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

func (s *saver) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

func (s *saver) trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *saver) run() {
	defer close(s.done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := s.e.clock.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.triggerCh:
			s.checkpoint("checkpoint")
		case <-tick:
			s.checkpoint("periodic")
		}
	}
}

func (s *saver) checkpoint(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()

	if err := s.flush(ctx, false); err != nil {
		log.Error().
			Err(err).
			Str("match_id", s.e.matchID).
			Str("reason", reason).
			Msg("failed to save match state")
		if s.e.deps.OnPersistError != nil {
			s.e.deps.OnPersistError(s.e.matchID, err)
		}
	}
}

func (s *saver) flush(ctx context.Context, force bool) error {
	if s.e.deps.Flusher == nil {
		return nil
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	snap, version := s.e.snapshotVersion()
	if !force && s.savedOnce && version == s.saved {
		return nil
	}
	if err := s.e.deps.Flusher.Flush(ctx, snap); err != nil {
		return err
	}
	s.saved = version
	s.savedOnce = true

	log.Debug().
		Str("match_id", s.e.matchID).
		Time("updated_at", snap.UpdatedAt).
		Msg("match state saved")
	return nil
}
