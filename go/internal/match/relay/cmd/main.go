package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/config"
	"github.com/mcdev12/futsal/go/internal/match/relay"
	"github.com/mcdev12/futsal/go/internal/match/repository/postgres/db"
	"github.com/mcdev12/futsal/go/internal/natsutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	config.SetupLogging(cfg.Log)

	dsn := cfg.Database.DSN()
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, js, err := natsutil.ConnectJetStream(cfg.NATS.URL, "futsal-relay")
	if err != nil {
		log.Fatal().Err(err).Msg("connect to JetStream")
	}
	defer nc.Close()

	clk := clockwork.NewRealClock()
	publisher, err := relay.NewJetStreamPublisher(ctx, js, clk, cfg.Relay.Stream)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}

	lcfg := cfg.Relay.Listener
	lcfg.DatabaseURL = dsn
	queries := db.New(sqlDB)
	listener, err := relay.NewListener(queries, publisher, clk, lcfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}

	health := relay.NewHealthChecker(listener.Relay, queries, cfg.Relay.Health)
	health.AddCheck("database", sqlDB.PingContext)
	health.AddCheck("nats", func(context.Context) error {
		if !nc.IsConnected() {
			return errors.New("NATS disconnected")
		}
		return nil
	})
	mux := http.NewServeMux()
	mux.Handle("GET /health", health)
	healthServer := &http.Server{Addr: cfg.Relay.Health.Addr, Handler: mux}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server stopped")
		}
	}()
	defer healthServer.Close()

	log.Info().Str("health_addr", cfg.Relay.Health.Addr).Msg("starting outbox relay")
	if err := listener.Start(ctx); err != nil {
		log.Error().Err(err).Msg("close listener")
		os.Exit(1)
	}
	log.Info().Msg("graceful shutdown complete")
}
