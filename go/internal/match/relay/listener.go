package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        `yaml:"-"`
	NotifyChannel    string        `yaml:"notify_channel"`
	FallbackInterval time.Duration `yaml:"fallback_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	BatchSize        int32         `yaml:"batch_size"`
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "match_event_outbox",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Relay moves outbox rows to the publisher and marks them sent. A row is
// marked only after a successful publish, so delivery is at least once.
type Relay struct {
	queries   OutboxQueries
	publisher Publisher
	clock     clockwork.Clock
	cfg       ListenerConfig

	mu            sync.Mutex
	published     uint64
	lastPublished time.Time
	running       bool
}

func NewRelay(queries OutboxQueries, publisher Publisher, clk clockwork.Clock, cfg ListenerConfig) *Relay {
	return &Relay{queries: queries, publisher: publisher, clock: clk, cfg: cfg}
}

// HandleNotification publishes the outbox row named by a NOTIFY payload.
func (r *Relay) HandleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid outbox id in notification: %w", err)
	}

	row, err := r.queries.FetchOutboxByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if row.SentAt.Valid {
		log.Debug().Str("outbox_id", id.String()).Msg("outbox event already sent")
		return nil
	}

	if err := r.publishWithRetry(ctx, fromRow(row)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Info().Str("outbox_id", id.String()).Msg("published and marked event as sent")
	return nil
}

// ProcessUnsent sweeps rows a lost notification left behind. A row that
// fails is logged and left for the next sweep.
func (r *Relay) ProcessUnsent(ctx context.Context) error {
	unsent, err := r.queries.FetchUnsentOutbox(ctx, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	sent := 0
	for _, row := range unsent {
		if err := r.publishWithRetry(ctx, fromRow(row)); err != nil {
			log.Error().Err(err).Str("outbox_id", row.ID.String()).Msg("failed to publish event")
			continue
		}
		sent++
	}
	if len(unsent) > 0 {
		log.Info().Int("sent", sent).Int("total", len(unsent)).Msg("processed unsent outbox events")
	}
	return nil
}

func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("outbox_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if err := r.queries.MarkOutboxSent(ctx, event.ID); err != nil {
			return fmt.Errorf("mark outbox event sent: %w", err)
		}
		r.mu.Lock()
		r.published++
		r.lastPublished = r.clock.Now()
		r.mu.Unlock()
		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("outbox_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

// Run drives the relay from notifications, a fallback sweep and a periodic
// ping until ctx ends. A nil notification means the connection was
// re-established, so a sweep runs to pick up anything missed meanwhile.
func (r *Relay) Run(ctx context.Context, notify <-chan *pq.Notification, ping func() error) {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("ping_interval", r.cfg.PingInterval).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Msg("relay started")

	r.setRunning(true)
	defer r.setRunning(false)

	pingTicker := r.clock.NewTicker(r.cfg.PingInterval)
	fallbackTicker := r.clock.NewTicker(r.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	if err := r.ProcessUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutting down")
			return
		case note := <-notify:
			if note == nil {
				if err := r.ProcessUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := r.HandleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.Chan():
			if err := r.ProcessUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.Chan():
			if ping == nil {
				continue
			}
			if err := ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stats reports how many rows were published and when the last one was.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published, r.lastPublished
}

func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Relay) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}

// Listener is a Relay fed by Postgres LISTEN on the outbox channel.
type Listener struct {
	*Relay
	listener *pq.Listener
}

func NewListener(queries OutboxQueries, publisher Publisher, clk clockwork.Clock, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}
	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")

	return &Listener{
		Relay:    NewRelay(queries, publisher, clk, cfg),
		listener: l,
	}, nil
}

// Start blocks until ctx ends, then closes the LISTEN connection.
func (l *Listener) Start(ctx context.Context) error {
	l.Run(ctx, l.listener.Notify, l.listener.Ping)
	return l.listener.Close()
}
