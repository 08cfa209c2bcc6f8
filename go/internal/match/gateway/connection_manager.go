package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig tunes viewer sockets.
type ConnectionConfig struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingInterval time.Duration
	// SendBuffer is the number of frames a viewer may lag behind before it
	// is disconnected.
	SendBuffer int
	QueueSize  int
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout: 10 * time.Second,
		PongTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   256,
		QueueSize:    1000,
	}
}

// ConnectionManager fans match snapshots out to WebSocket viewers, grouped
// into one room per match.
type ConnectionManager struct {
	cfg      ConnectionConfig
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*viewer]struct{}

	queue chan outbound
}

type outbound struct {
	matchID string
	msg     *ServerMessage
}

type viewer struct {
	id      string
	matchID string
	ws      *websocket.Conn
	send    chan []byte
}

func NewConnectionManager(cfg ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[*viewer]struct{}),
		queue: make(chan outbound, cfg.QueueSize),
	}
}

// Start delivers queued broadcasts, in order, until ctx ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case out := <-cm.queue:
			cm.deliver(out)
		}
	}
}

// UpgradeConnection upgrades the request, joins the viewer to the match room
// and sends the snapshot returned by initial. A broadcast racing the join
// may arrive first; viewers keep the snapshot with the newest updated_at.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, matchID string, initial func() *ServerMessage) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	v := &viewer{
		id:      uuid.NewString(),
		matchID: matchID,
		ws:      ws,
		send:    make(chan []byte, cm.cfg.SendBuffer),
	}
	cm.join(v)

	go cm.writeLoop(v)
	go cm.readLoop(v)

	if data, err := json.Marshal(initial()); err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to marshal initial snapshot")
	} else {
		cm.offer(v, data)
	}

	log.Info().Str("viewer_id", v.id).Str("match_id", matchID).Msg("viewer connected")
	return nil
}

// BroadcastToMatch queues msg for every viewer of the match without
// blocking. A full queue drops the message.
func (cm *ConnectionManager) BroadcastToMatch(matchID string, msg *ServerMessage) {
	select {
	case cm.queue <- outbound{matchID: matchID, msg: msg}:
	default:
		log.Warn().Str("match_id", matchID).Msg("broadcast queue full, dropping message")
	}
}

// ConnectionCount returns the number of viewers of a match.
func (cm *ConnectionManager) ConnectionCount(matchID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.rooms[matchID])
}

func (cm *ConnectionManager) join(v *viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	room := cm.rooms[v.matchID]
	if room == nil {
		room = make(map[*viewer]struct{})
		cm.rooms[v.matchID] = room
	}
	room[v] = struct{}{}
	log.Debug().Str("match_id", v.matchID).Int("viewers", len(room)).Msg("viewer joined")
}

// leave is idempotent; the send channel is closed exactly once.
func (cm *ConnectionManager) leave(v *viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	room := cm.rooms[v.matchID]
	if _, ok := room[v]; !ok {
		return
	}
	delete(room, v)
	close(v.send)
	if len(room) == 0 {
		delete(cm.rooms, v.matchID)
	}
	log.Info().Str("viewer_id", v.id).Str("match_id", v.matchID).Msg("viewer left")
}

func (cm *ConnectionManager) deliver(out outbound) {
	cm.mu.RLock()
	targets := make([]*viewer, 0, len(cm.rooms[out.matchID]))
	for v := range cm.rooms[out.matchID] {
		targets = append(targets, v)
	}
	cm.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(out.msg)
	if err != nil {
		log.Error().Err(err).Str("match_id", out.matchID).Msg("failed to marshal broadcast")
		return
	}
	for _, v := range targets {
		if !cm.offer(v, data) {
			log.Warn().Str("viewer_id", v.id).Msg("viewer too slow, disconnecting")
			cm.leave(v)
			v.ws.Close()
		}
	}
	log.Debug().
		Str("type", string(out.msg.Type)).
		Str("match_id", out.matchID).
		Int("viewers", len(targets)).
		Msg("broadcast delivered")
}

// offer reports false only when the viewer's buffer is full. A viewer that
// already left counts as delivered.
func (cm *ConnectionManager) offer(v *viewer, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if _, ok := cm.rooms[v.matchID][v]; !ok {
		return true
	}
	select {
	case v.send <- data:
		return true
	default:
		return false
	}
}

func (cm *ConnectionManager) writeLoop(v *viewer) {
	ping := time.NewTicker(cm.cfg.PingInterval)
	defer func() {
		ping.Stop()
		v.ws.Close()
		cm.leave(v)
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case frame, ok := <-v.send:
			if !ok {
				kind = websocket.CloseMessage
			} else {
				kind, data = websocket.TextMessage, frame
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}
		_ = v.ws.SetWriteDeadline(time.Now().Add(cm.cfg.WriteTimeout))
		if err := v.ws.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			if err != nil {
				log.Debug().Err(err).Str("viewer_id", v.id).Msg("viewer write failed")
			}
			return
		}
	}
}

// readLoop discards inbound frames; it exists to process pongs and notice
// the viewer going away.
func (cm *ConnectionManager) readLoop(v *viewer) {
	defer func() {
		cm.leave(v)
		v.ws.Close()
	}()

	v.ws.SetReadLimit(1024)
	extend := func() { _ = v.ws.SetReadDeadline(time.Now().Add(cm.cfg.PongTimeout)) }
	extend()
	v.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		if _, _, err := v.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("viewer_id", v.id).Msg("unexpected WebSocket close")
			}
			return
		}
		extend()
	}
}
