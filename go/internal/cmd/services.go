package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/config"
	"github.com/mcdev12/futsal/go/internal/match/cache"
	"github.com/mcdev12/futsal/go/internal/match/engine"
	"github.com/mcdev12/futsal/go/internal/match/gateway"
	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/match/replication"
	"github.com/mcdev12/futsal/go/internal/match/repository/postgres"
	"github.com/mcdev12/futsal/go/internal/match/repository/sqlite"
	"github.com/mcdev12/futsal/go/internal/natsutil"
)

// pinger is implemented by every backend the health check reports on.
type pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Manager  *engine.Manager
	Writer   *persistence.EventWriter
	Counters *persistence.Counters
	Conns    *gateway.ConnectionManager
	Gateway  *gateway.Server

	backends map[string]pinger
	closers  []func()
	// cancel stops the background workers, which outlive the signal context
	// until Shutdown.
	cancel context.CancelFunc
}

// setupServices wires store → reconciler → engine manager → gateway.
func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Services{backends: make(map[string]pinger), cancel: cancel}
	clk := clockwork.NewRealClock()

	store, err := s.setupStore(cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	snapshotCache := s.setupCache(cfg)

	bus, err := s.setupBus(cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	s.Counters = &persistence.Counters{}
	s.Writer = persistence.NewEventWriter(store, clk, cfg.EventRetry, s.Counters)
	if err := s.Writer.Start(runCtx); err != nil {
		s.close()
		return nil, fmt.Errorf("start event writer: %w", err)
	}

	s.Conns = gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go s.Conns.Start(runCtx)

	var srv *gateway.Server
	s.Manager = engine.NewManager(engine.Config{
		ReplicaID:      cfg.ReplicaID,
		RunClock:       cfg.RunClock,
		Rules:          cfg.Engine.Rules,
		MaxTickElapsed: cfg.Engine.MaxTickElapsed,
		SaveInterval:   cfg.Engine.SaveInterval,
	}, engine.ManagerDeps{
		Clock:  clk,
		Loader: persistence.NewReconciler(store, snapshotCache),
		Cache:  snapshotCache,
		Bus:    bus,
		Events: s.Writer,
		OnPersistError: func(matchID string, err error) {
			srv.NotifyPersistError(matchID, err)
		},
	})
	srv = gateway.NewServer(s.Manager, s.Conns)
	s.Gateway = srv
	return s, nil
}

func (s *Services) setupStore(cfg config.Config) (persistence.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.closers = append(s.closers, func() { store.Close() })
		s.backends["store"] = store
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return store, nil
	default:
		db, err := setupDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		repo := postgres.NewRepository(db)
		s.backends["store"] = repo
		return repo, nil
	}
}

// setupCache returns nil when the cache is disabled.
func (s *Services) setupCache(cfg config.Config) persistence.Cache {
	switch cfg.CacheDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.closers = append(s.closers, func() { client.Close() })
		c := cache.NewRedisCache(client, cfg.Cache.TTL)
		s.backends["cache"] = c
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis snapshot cache")
		return c
	case "memory":
		return cache.NewMemoryCache()
	default:
		return nil
	}
}

func (s *Services) setupBus(cfg config.Config) (replication.Bus, error) {
	if cfg.BusDriver != "nats" {
		log.Warn().Msg("using in-process replication bus, snapshots stay on this replica")
		return replication.NewMemoryBus(), nil
	}
	nc, err := natsutil.Connect(cfg.NATS.URL, "futsal-"+cfg.ReplicaID)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	})
	return replication.NewNATSBus(nc, cfg.Replication.SubjectPrefix), nil
}

// Shutdown writes final checkpoints, drains pending events and closes every
// backend.
func (s *Services) Shutdown(ctx context.Context) {
	if err := s.Manager.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("final checkpoints failed")
	}
	if err := s.Writer.Drain(ctx); err != nil {
		log.Error().Err(err).Int("pending", s.Writer.Pending()).Msg("event queue not drained")
	}
	if err := s.Writer.Stop(); err != nil {
		log.Warn().Err(err).Msg("stop event writer")
	}
	s.close()
}

func (s *Services) close() {
	s.cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
