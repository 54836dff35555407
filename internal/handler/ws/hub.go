package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ChartSignal/internal/domain/models"
	applogger "ChartSignal/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Event is the envelope pushed to browser clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans emitted records out to connected WebSocket clients. Slow clients
// whose buffer fills are disconnected.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	l        *applogger.Logger
	snapshot func() []models.SignalRecord
}

type HubOption func(*Hub)

// WithSnapshot sends the current store contents to each new client.
func WithSnapshot(fn func() []models.SignalRecord) HubOption {
	return func(h *Hub) { h.snapshot = fn }
}

func WithHubLogger(l *applogger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.l = l
		}
	}
}

// WithAllowedOrigins restricts upgrades to the listed origins; empty allows any.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		l:       applogger.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request and registers the client.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil // upgrader already wrote the response
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// Snapshot and registration share the lock so a record emitted in
	// between lands in one or the other.
	h.mu.Lock()
	if h.snapshot != nil {
		if b, err := json.Marshal(Event{Type: "snapshot", Data: h.snapshot()}); err == nil {
			cl.send <- b
		}
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.l.Debug("websocket client connected", applogger.Int("clients", n))

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// Deliver broadcasts a record to every client.
func (h *Hub) Deliver(_ context.Context, rec models.SignalRecord) error {
	b, err := json.Marshal(Event{Type: "signal", Data: rec})
	if err != nil {
		return err
	}
	h.broadcast(b)
	return nil
}

func (h *Hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			delete(h.clients, cl)
			cl.close()
			h.l.Warn("websocket client too slow, dropped")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
	}
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		cl.close()
	}
	h.mu.Unlock()
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(cl *client) {
	defer h.unregister(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.unregister(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(cl)
				return
			}
		}
	}
}
