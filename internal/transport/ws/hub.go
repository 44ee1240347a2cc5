// Package ws delivers session events to connected browsers over
// WebSocket. Each connection subscribes to one session; events the
// engine publishes for that session are fanned out to its connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dealsense/negotiator/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// envelope is the wire form of a session event.
type envelope struct {
	Channel   string    `json:"channel"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type connection struct {
	id        string
	sessionID string
	ws        *websocket.Conn
	send      chan []byte
}

// Hub tracks connections per session and implements ports.Publisher.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]map[*connection]bool
	closed   bool
}

var _ ports.Publisher = (*Hub)(nil)

// NewHub creates a hub. Origin checking is left to the reverse proxy.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]map[*connection]bool),
	}
}

// ServeSession upgrades the request and subscribes the connection to
// the given session until the peer disconnects.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return
	}

	conn := &connection{
		id:        uuid.New().String(),
		sessionID: sessionID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
	}
	if !h.register(conn) {
		ws.Close()
		return
	}

	go h.writePump(conn)
	h.readPump(conn)
}

func (h *Hub) register(conn *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.sessions[conn.sessionID] == nil {
		h.sessions[conn.sessionID] = make(map[*connection]bool)
	}
	h.sessions[conn.sessionID][conn] = true
	h.logger.Debug("websocket connected",
		slog.String("connection_id", conn.id),
		slog.String("session_id", conn.sessionID))
	return true
}

func (h *Hub) unregister(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.sessions[conn.sessionID]
	if conns == nil || !conns[conn] {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.sessions, conn.sessionID)
	}
	close(conn.send)
}

// readPump drains inbound frames. Clients are listen-only; anything
// they send is discarded, but reads drive pong handling and disconnect
// detection.
func (h *Hub) readPump(conn *connection) {
	defer func() {
		h.unregister(conn)
		conn.ws.Close()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error",
					slog.String("connection_id", conn.id),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish implements ports.Publisher. A connection that cannot keep up
// is dropped rather than allowed to stall the turn.
func (h *Hub) Publish(ctx context.Context, sessionID string, channel ports.Channel, event ports.Event) error {
	data, err := json.Marshal(envelope{
		Channel:   string(channel),
		Type:      event.Type,
		SessionID: sessionID,
		Payload:   event.Payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	var stalled []*connection
	for conn := range h.sessions[sessionID] {
		select {
		case conn.send <- data:
		default:
			stalled = append(stalled, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stalled {
		h.logger.Warn("websocket send buffer full, dropping connection",
			slog.String("connection_id", conn.id),
			slog.String("session_id", sessionID))
		h.unregister(conn)
		conn.ws.Close()
	}
	return nil
}

// Close drops every connection and rejects future registrations.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sessionID, conns := range h.sessions {
		for conn := range conns {
			close(conn.send)
			conn.ws.Close()
		}
		delete(h.sessions, sessionID)
	}
	return nil
}
