package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/futsal/go/internal/config"
	"github.com/mcdev12/futsal/go/internal/match/persistence"
)

const healthPingTimeout = 2 * time.Second

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	services.Gateway.RegisterRoutes(mux)
	setupHealthCheck(mux, services)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

type healthResponse struct {
	Status        string                      `json:"status"`
	OpenMatches   []string                    `json:"open_matches"`
	PendingEvents int                         `json:"pending_events"`
	EventWrites   persistence.CounterSnapshot `json:"event_writes"`
	Backends      map[string]string           `json:"backends"`
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:        "ok",
			OpenMatches:   services.Manager.OpenMatches(),
			PendingEvents: services.Writer.Pending(),
			EventWrites:   services.Counters.Snapshot(),
			Backends:      make(map[string]string, len(services.backends)),
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		for name, b := range services.backends {
			if err := b.Ping(ctx); err != nil {
				resp.Backends[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Backends[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
