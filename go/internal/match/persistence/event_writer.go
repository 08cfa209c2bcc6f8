package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/models"
)

type WriterConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// CooldownDelay is the pause after a full retry cycle failed before the
	// same event is tried again.
	CooldownDelay time.Duration `yaml:"cooldown_delay"`
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxRetries:    3,
		RetryDelay:    time.Second,
		CooldownDelay: 10 * time.Second,
	}
}

type pendingEvent struct {
	matchID string
	event   models.GameEvent
}

// EventWriter persists events in the background, in enqueue order and at
// least once. A failing write blocks the queue behind it and is retried
// until it succeeds or the writer stops; the store de-duplicates by event id.
type EventWriter struct {
	store   EventStore
	clock   clockwork.Clock
	config  WriterConfig
	metrics MetricsCollector

	mu       sync.Mutex
	queue    []pendingEvent
	inflight bool
	emptyCh  chan struct{}
	running  bool
	signal   chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewEventWriter(store EventStore, clk clockwork.Clock, cfg WriterConfig, metrics MetricsCollector) *EventWriter {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &EventWriter{
		store:    store,
		clock:    clk,
		config:   cfg,
		metrics:  metrics,
		emptyCh:  make(chan struct{}),
		signal:   make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

func (w *EventWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("event writer already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Int("max_retries", w.config.MaxRetries).
		Dur("retry_delay", w.config.RetryDelay).
		Msg("event writer started")
	return nil
}

// Stop ends the worker. Events still queued are reported and dropped; call
// Drain first to flush them.
func (w *EventWriter) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("event writer not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	if n := w.Pending(); n > 0 {
		log.Warn().Int("pending", n).Msg("event writer stopped with unpersisted events")
	}
	log.Info().Msg("event writer stopped")
	return nil
}

// Enqueue schedules an event for persistence and returns immediately.
func (w *EventWriter) Enqueue(matchID string, event models.GameEvent) {
	w.mu.Lock()
	w.queue = append(w.queue, pendingEvent{matchID: matchID, event: event})
	depth := len(w.queue)
	w.mu.Unlock()

	w.metrics.RecordQueueDepth(depth)
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Pending counts events not yet durably written.
func (w *EventWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Drain waits until every queued event is written or ctx ends.
func (w *EventWriter) Drain(ctx context.Context) error {
	w.mu.Lock()
	if len(w.queue) == 0 && !w.inflight {
		w.mu.Unlock()
		return nil
	}
	ch := w.emptyCh
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event writer: %d pending: %w", w.Pending(), ctx.Err())
	}
}

func (w *EventWriter) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		item, ok := w.peek()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			case <-w.signal:
				continue
			}
		}

		if err := w.persistWithRetry(ctx, item); err != nil {
			log.Error().
				Err(err).
				Str("match_id", item.matchID).
				Str("event_id", item.event.ID).
				Msg("failed to persist event, will retry after cooldown")
			w.release()
			if !w.wait(ctx, w.config.CooldownDelay) {
				return
			}
			continue
		}
		w.pop()
	}
}

func (w *EventWriter) peek() (pendingEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return pendingEvent{}, false
	}
	w.inflight = true
	return w.queue[0], true
}

func (w *EventWriter) release() {
	w.mu.Lock()
	w.inflight = false
	w.mu.Unlock()
}

func (w *EventWriter) pop() {
	w.mu.Lock()
	w.queue = w.queue[1:]
	w.inflight = false
	depth := len(w.queue)
	if depth == 0 {
		close(w.emptyCh)
		w.emptyCh = make(chan struct{})
	}
	w.mu.Unlock()

	w.metrics.RecordQueueDepth(depth)
}

func (w *EventWriter) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-w.stopChan:
		return false
	case <-w.clock.After(d):
		return true
	}
}

func (w *EventWriter) persistWithRetry(ctx context.Context, item pendingEvent) error {
	var lastErr error
	eventType := string(item.event.Type)
	start := w.clock.Now()

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 && !w.wait(ctx, w.config.RetryDelay*time.Duration(attempt)) {
			return fmt.Errorf("stopped while retrying: %w", lastErr)
		}

		if err := w.store.PersistEvent(ctx, item.matchID, item.event); err != nil {
			lastErr = &PersistError{Op: OpPersistEvent, MatchID: item.matchID, Err: err}
			w.metrics.RecordPersistAttempt(eventType, attempt+1, false)
			log.Warn().
				Err(err).
				Str("event_id", item.event.ID).
				Int("attempt", attempt+1).
				Msg("failed to persist event, retrying")
			continue
		}

		w.metrics.RecordPersistAttempt(eventType, attempt+1, true)
		w.metrics.RecordEventPersisted(eventType, true, w.clock.Since(start))
		return nil
	}

	w.metrics.RecordEventPersisted(eventType, false, w.clock.Since(start))
	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
