package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/futsal/go/internal/match/engine"
	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/models"
)

const maxActionBody = 64 << 10

// Engines opens match engines on demand. *engine.Manager implements it.
type Engines interface {
	Open(ctx context.Context, matchID string) (*engine.MatchEngine, error)
}

// Server exposes match engines over HTTP and pushes snapshots to WebSocket
// viewers.
type Server struct {
	engines Engines
	conns   *ConnectionManager

	mu      sync.Mutex
	watched map[string]*engine.MatchEngine
}

func NewServer(engines Engines, conns *ConnectionManager) *Server {
	return &Server{
		engines: engines,
		conns:   conns,
		watched: make(map[string]*engine.MatchEngine),
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/matches/{id}/state", s.HandleGetState)
	mux.HandleFunc("POST /api/matches/{id}/actions", s.HandleDispatch)
	mux.HandleFunc("POST /api/matches/{id}/save", s.HandleSave)
	mux.HandleFunc("GET /ws/matches/{id}", s.HandleWebSocket)
}

// NotifyPersistError tells viewers of a match that a checkpoint failed.
func (s *Server) NotifyPersistError(matchID string, err error) {
	s.conns.BroadcastToMatch(matchID, &ServerMessage{
		Type:    MessagePersistError,
		MatchID: matchID,
		Error:   err.Error(),
	})
}

// open returns the engine and makes sure its snapshots reach viewers. A
// reopened match gets a new engine, which is watched again.
func (s *Server) open(ctx context.Context, matchID string) (*engine.MatchEngine, error) {
	e, err := s.engines.Open(ctx, matchID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watched[matchID] != e {
		s.watched[matchID] = e
		periodLength := e.Rules().PeriodLength
		e.Subscribe(func(state models.MatchState) {
			s.conns.BroadcastToMatch(matchID, snapshotMessage(state, periodLength))
		})
	}
	return e, nil
}

func (s *Server) openOrFail(w http.ResponseWriter, r *http.Request) (*engine.MatchEngine, bool) {
	matchID := r.PathValue("id")
	e, err := s.open(r.Context(), matchID)
	if err == nil {
		return e, true
	}
	if errors.Is(err, models.ErrMatchNotFound) {
		http.Error(w, "match not found", http.StatusNotFound)
		return nil, false
	}
	log.Error().Err(err).Str("match_id", matchID).Msg("failed to open match")
	http.Error(w, "match unavailable", http.StatusServiceUnavailable)
	return nil, false
}

// HandleGetState handles GET /api/matches/{id}/state
func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	e, ok := s.openOrFail(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.GetState())
}

type dispatchResponse struct {
	Changed bool              `json:"changed"`
	State   models.MatchState `json:"state"`
}

// HandleDispatch handles POST /api/matches/{id}/actions. A well formed action
// the match state machine ignores answers 200 with changed=false.
func (s *Server) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	action, err := req.ToAction()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	e, ok := s.openOrFail(w, r)
	if !ok {
		return
	}
	changed, err := e.Dispatch(action)
	if err != nil {
		if errors.Is(err, engine.ErrClosed) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Changed: changed, State: e.GetState()})
}

// HandleSave handles POST /api/matches/{id}/save. A failed write is
// retryable and answers 503.
func (s *Server) HandleSave(w http.ResponseWriter, r *http.Request) {
	e, ok := s.openOrFail(w, r)
	if !ok {
		return
	}
	if err := e.Save(r.Context()); err != nil {
		log.Error().Err(err).Str("match_id", e.MatchID()).Msg("manual save failed")
		if errors.Is(err, persistence.ErrPersist) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocket handles GET /ws/matches/{id}
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	e, ok := s.openOrFail(w, r)
	if !ok {
		return
	}
	matchID := e.MatchID()
	initial := func() *ServerMessage { return snapshotMessage(e.GetState(), e.Rules().PeriodLength) }
	if err := s.conns.UpgradeConnection(w, r, matchID, initial); err != nil {
		// The upgrader already wrote an HTTP error.
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to upgrade WebSocket connection")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
