package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 5 * time.Second

type HealthConfig struct {
	Addr string `yaml:"addr"`
	// StallThreshold is how long rows may wait without anything being
	// published before the relay reports unhealthy.
	StallThreshold time.Duration `yaml:"stall_threshold"`
	// PendingAlert adds a warning once this many rows are unsent.
	PendingAlert int64 `yaml:"pending_alert"`
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Addr:           ":8081",
		StallThreshold: 2 * time.Minute,
		PendingAlert:   1000,
	}
}

type HealthStatus struct {
	Healthy         bool              `json:"healthy"`
	EventsPublished uint64            `json:"events_published"`
	LastPublished   time.Time         `json:"last_published"`
	PendingEvents   int64             `json:"pending_events"`
	ListenerActive  bool              `json:"listener_active"`
	Dependencies    map[string]string `json:"dependencies"`
	Errors          []string          `json:"errors"`
}

// HealthChecker reports on a running relay and the connections it needs.
type HealthChecker struct {
	relay   *Relay
	queries OutboxQueries
	checks  map[string]func(ctx context.Context) error
	cfg     HealthConfig
}

func NewHealthChecker(relay *Relay, queries OutboxQueries, cfg HealthConfig) *HealthChecker {
	return &HealthChecker{
		relay:   relay,
		queries: queries,
		checks:  make(map[string]func(ctx context.Context) error),
		cfg:     cfg,
	}
}

// AddCheck registers a named dependency check, such as a database ping.
func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error) {
	h.checks[name] = check
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:      true,
		Dependencies: make(map[string]string, len(h.checks)),
		Errors:       []string{},
	}

	status.EventsPublished, status.LastPublished = h.relay.Stats()
	status.ListenerActive = h.relay.Running()
	if !status.ListenerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status.Dependencies[name] = err.Error()
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("%s check failed: %v", name, err))
			continue
		}
		status.Dependencies[name] = "ok"
	}

	pending, err := h.queries.CountUnsentOutbox(ctx)
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		return status
	}
	status.PendingEvents = pending
	if h.cfg.PendingAlert > 0 && pending > h.cfg.PendingAlert {
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
	}

	// Only a backlog can stall; an idle relay is healthy.
	if pending > 0 && !status.LastPublished.IsZero() {
		if since := h.relay.clock.Since(status.LastPublished); since > h.cfg.StallThreshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events published for %s", since))
		}
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write relay health response")
	}
}
