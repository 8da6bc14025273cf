package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/testr/testr-dashboard/server/internal/api"
	"github.com/testr/testr-dashboard/server/internal/view"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxQueryMessage bounds a single client frame.
	maxQueryMessage = 1024
)

// EventDashboard is the event name of every message the hub sends.
const EventDashboard = "dashboard"

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string                `json:"event"`
	Data  api.DashboardResponse `json:"data"`
}

// QueryMessage is what a client sends to change its model filter.
type QueryMessage struct {
	Query string `json:"query"`
}

// Hub manages WebSocket client connections. Every client gets the dashboard
// on connect, again whenever it changes its filter, and once more when the
// view leaves the loading phase.
type Hub struct {
	view     *view.View
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client and its filter query.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	qmu   sync.Mutex
	query string
}

// New creates a Hub serving dashboards built from v. origins lists the
// accepted Origin headers; "*" or an empty list accepts any origin.
func New(v *view.View, origins []string) *Hub {
	h := &Hub{
		view:    v,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

// Run waits for the view's single transition and pushes the new dashboard to
// every connected client. It then blocks until ctx is cancelled and closes
// all active connections.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		h.closeAll()
		return
	case <-h.view.Done():
		h.broadcast()
	}

	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The initial filter comes from the model query parameter. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufSize),
		query: r.URL.Query().Get(api.QueryParam),
	}
	h.register(c)
	defer h.unregister(c)
	slog.Debug("ws: client connected", "client", c.id, "remote", r.RemoteAddr)

	// Send the current dashboard immediately so the UI has data right away.
	h.push(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
	slog.Debug("ws: client disconnected", "client", c.id)
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast sends each client the dashboard for its own query. Clients whose
// buffer is full are disconnected.
func (h *Hub) broadcast() {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !h.trySend(c) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("ws: dropping slow client", "client", c.id)
		h.unregister(c)
	}
}

// push sends one client its current dashboard.
func (h *Hub) push(c *client) {
	h.mu.RLock()
	_, ok := h.clients[c]
	sent := ok && h.trySend(c)
	h.mu.RUnlock()

	if ok && !sent {
		slog.Warn("ws: dropping slow client", "client", c.id)
		h.unregister(c)
	}
}

// trySend must be called with h.mu held so c.send cannot be closed under it.
func (h *Hub) trySend(c *client) bool {
	data, err := h.buildMessage(c.getQuery())
	if err != nil {
		slog.Error("ws: marshal dashboard", "err", err)
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) buildMessage(query string) ([]byte, error) {
	msg := Message{
		Event: EventDashboard,
		Data:  api.BuildDashboard(h.view, query, h.now()),
	}
	return json.Marshal(msg)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (c *client) getQuery() string {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return c.query
}

func (c *client) setQuery(q string) {
	c.qmu.Lock()
	c.query = q
	c.qmu.Unlock()
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads filter updates from the client and answers each with a
// freshly computed dashboard. It also handles pong and close frames. Blocks
// until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxQueryMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var qm QueryMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			slog.Debug("ws: ignoring malformed client message", "client", c.id, "err", err)
			continue
		}
		c.setQuery(qm.Query)
		c.hub.push(c)
	}
}

// originChecker accepts requests without an Origin header and those whose
// origin is listed.
func originChecker(origins []string) func(*http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
