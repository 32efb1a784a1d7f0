package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *wsClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub pushes configuration and log updates to connected websocket
// clients. Producers signal through single-slot channels so a slow
// browser never backs up the render or log path.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}

	configCh chan struct{}
	logsCh   chan struct{}

	snapshotConfig func() any
	snapshotLogs   func() any
}

// NewHub returns a hub using the given snapshot functions to build the
// payload of each push.
func NewHub(snapshotConfig, snapshotLogs func() any) *Hub {
	return &Hub{
		clients:        make(map[*wsClient]struct{}),
		configCh:       make(chan struct{}, 1),
		logsCh:         make(chan struct{}, 1),
		snapshotConfig: snapshotConfig,
		snapshotLogs:   snapshotLogs,
	}
}

// NotifyConfig schedules a config push. Never blocks.
func (h *Hub) NotifyConfig() {
	select {
	case h.configCh <- struct{}{}:
	default:
	}
}

// NotifyLogs schedules a log push. Never blocks.
func (h *Hub) NotifyLogs() {
	select {
	case h.logsCh <- struct{}{}:
	default:
	}
}

// Run fans queued notifications out to all clients until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.configCh:
			h.broadcast("config", h.snapshotConfig())
		case <-h.logsCh:
			h.broadcast("logs", h.snapshotLogs())
		}
	}
}

func (h *Hub) broadcast(kind string, data any) {
	msg := map[string]any{"type": kind, "data": data}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// ServeHTTP upgrades the connection, sends the initial state and then
// reads client messages until disconnect. A "refresh" message re-sends
// both snapshots to the requesting client only.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("web: websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("web: websocket client connected", "remote", r.RemoteAddr, "clients", n)

	c.send(map[string]any{"type": "config", "data": h.snapshotConfig()})
	c.send(map[string]any{"type": "logs", "data": h.snapshotLogs()})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("web: websocket read error", "remote", r.RemoteAddr, "error", err)
			}
			h.drop(c)
			return
		}
		if msg.Type == "refresh" {
			c.send(map[string]any{"type": "config", "data": h.snapshotConfig()})
			c.send(map[string]any{"type": "logs", "data": h.snapshotLogs()})
		}
	}
}
