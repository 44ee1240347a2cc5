package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dealsense/negotiator/internal/core/ports"
)

func dialHub(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeSession(w, r, sessionID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscriber(t *testing.T, hub *Hub, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.sessions[sessionID])
		hub.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no subscriber registered for %s", sessionID)
}

func TestHubDeliversSessionEvents(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer hub.Close()

	conn := dialHub(t, hub, "s1")
	waitForSubscriber(t, hub, "s1")

	err := hub.Publish(context.Background(), "s1", ports.ChannelSeller, ports.Event{
		Type:      "agent_message",
		SessionID: "s1",
		Payload:   map[string]string{"content": "Would ₹8,500 be acceptable?"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "agent_message" || got.SessionID != "s1" {
		t.Errorf("envelope = %+v", got)
	}
	if got.Channel != string(ports.ChannelSeller) {
		t.Errorf("channel = %q, want %q", got.Channel, ports.ChannelSeller)
	}
	if got.Timestamp.IsZero() {
		t.Error("envelope timestamp unset")
	}
}

func TestHubScopesEventsToSession(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer hub.Close()

	conn := dialHub(t, hub, "s1")
	waitForSubscriber(t, hub, "s1")

	// An event for a different session must not reach this connection.
	if err := hub.Publish(context.Background(), "s2", ports.ChannelSeller, ports.Event{Type: "agent_message"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received event published for another session")
	}
}

func TestHubCloseRejectsNewConnections(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := hub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeSession(w, r, "s1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return // connection refused outright is also acceptable
	}
	defer conn.Close()

	// The upgrade may succeed before the hub drops the connection; the
	// next read must fail.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("closed hub kept a connection alive")
	}
}
