// Package realtime is the server side of the order sync channel: a websocket hub that
// pushes change tokens to every connected client, optionally relayed across instances.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
	"github.com/Apurer/bakery-orders/internal/shared/syncproto"
)

// Settings bounds connection timing.
type Settings struct {
	WriteTimeout time.Duration
	// PongTimeout is how long a silent client is kept before it is dropped.
	PongTimeout  time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

func DefaultSettings() Settings {
	return Settings{
		WriteTimeout: 5 * time.Second,
		PongTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		SendBuffer:   16,
	}
}

// Relay fans change tokens out to hubs running in other processes.
type Relay interface {
	Publish(ctx context.Context, token string) error
	Subscribe(deliver func(token string)) error
	Close()
}

// Hub tracks connected clients and broadcasts order change tokens to them.
type Hub struct {
	settings Settings
	upgrader websocket.Upgrader
	logger   *slog.Logger
	newToken func() string

	mu      sync.Mutex
	clients map[*client]struct{}
	relay   Relay
	closed  bool
}

type Option func(*Hub)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithSettings(settings Settings) Option {
	return func(h *Hub) { h.settings = settings }
}

// WithTokenSource overrides change token generation for deterministic testing.
func WithTokenSource(next func() string) Option {
	return func(h *Hub) {
		if next != nil {
			h.newToken = next
		}
	}
}

// WithCheckOrigin replaces the default same-origin policy of the upgrader.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = check }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		settings: DefaultSettings(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newToken: func() string { return ulid.Make().String() },
		clients:  map[*client]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.settings.SendBuffer <= 0 {
		h.settings.SendBuffer = 1
	}
	return h
}

// AttachRelay publishes local broadcasts through relay and delivers remote ones locally.
func (h *Hub) AttachRelay(relay Relay) error {
	if err := relay.Subscribe(h.deliver); err != nil {
		return err
	}
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
	return nil
}

// OrdersChanged satisfies the orders change notifier port.
func (h *Hub) OrdersChanged(ctx context.Context, event ordersdomain.OrdersChanged) {
	token := h.Broadcast(ctx)
	h.logger.LogAttrs(ctx, slog.LevelDebug, "orders change broadcast",
		slog.String("event", event.EventName()),
		slog.Int64("order.id", event.OrderID),
		slog.String("token", token))
}

// Broadcast pushes a fresh change token to every client, here and through the relay.
func (h *Hub) Broadcast(ctx context.Context) string {
	token := h.newToken()
	h.deliver(token)
	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()
	if relay != nil {
		if err := relay.Publish(ctx, token); err != nil {
			h.logger.LogAttrs(ctx, slog.LevelWarn, "relay publish failed", slog.String("error", err.Error()))
		}
	}
	return token
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and serves the client until it disconnects.
// subject identifies the authenticated caller in logs.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, subject string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, subject: subject, send: make(chan []byte, h.settings.SendBuffer), done: make(chan struct{})}
	if !h.register(c) {
		conn.Close()
		return errors.New("hub closed")
	}
	h.logger.LogAttrs(r.Context(), slog.LevelInfo, "sync client connected", slog.String("subject", subject), slog.Int("clients", h.Clients()))
	go c.writeLoop()
	c.readLoop()
	return nil
}

// Close disconnects every client and detaches the relay.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = map[*client]struct{}{}
	relay := h.relay
	h.relay = nil
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
	if relay != nil {
		relay.Close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		h.logger.LogAttrs(context.Background(), slog.LevelInfo, "sync client disconnected", slog.String("subject", c.subject))
	}
}

func (h *Hub) deliver(token string) {
	payload, _ := json.Marshal(token)
	message, err := json.Marshal(syncproto.Frame{Type: syncproto.MethodUpdateOrders, Payload: payload})
	if err != nil {
		return
	}
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		if !c.enqueue(message) {
			// slow consumer; it reconnects and refetches
			h.logger.Warn("dropping slow sync client", slog.String("subject", c.subject))
			c.close()
		}
	}
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string
	send    chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) enqueue(message []byte) bool {
	select {
	case <-c.done:
		return true
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()
	settings := c.hub.settings
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(settings.PongTimeout))
	})
	for {
		var frame syncproto.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(settings.PongTimeout))
		switch frame.Type {
		case syncproto.MethodRequestBroadcast:
			c.hub.Broadcast(context.Background())
		default:
			c.hub.logger.Debug("ignoring unknown sync frame", slog.String("type", frame.Type))
		}
	}
}

func (c *client) writeLoop() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(settings.WriteTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

var _ ordersports.ChangeNotifier = (*Hub)(nil)
