// Package syncchannel keeps a client subscribed to server-side order changes and
// republishes them on the local event bus.
package syncchannel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	"github.com/Apurer/bakery-orders/internal/shared/syncproto"
)

// ConnectionState is the channel's view of the underlying connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	}
	return "ConnectionState(" + strconv.Itoa(int(s)) + ")"
}

// Lifecycle receives connection events from a Transport, in order, from one goroutine at a time.
type Lifecycle struct {
	Connected    func()
	Reconnecting func(err error)
	Closed       func(err error)
}

// Transport is a persistent bidirectional connection with its own retry policy.
type Transport interface {
	// Start begins connecting in the background and reports progress through lifecycle.
	Start(ctx context.Context, lifecycle Lifecycle) error
	// Handle registers an inbound message handler and returns its removal func.
	Handle(method string, handler func(payload json.RawMessage)) (remove func())
	// Invoke sends a payload-less call to the server.
	Invoke(ctx context.Context, method string) error
	Close() error
}

var ErrAlreadyStarted = errors.New("sync channel already started")

// Channel drives a Transport and owns the ConnectionState.
type Channel struct {
	transport Transport
	bus       *eventbus.Bus
	logger    *slog.Logger
	observe   func(ConnectionState)

	mu       sync.Mutex
	state    ConnectionState
	started  bool
	inbound  func()
	bindings []eventbus.Token
}

type Option func(*Channel)

// WithLogger logs transport failures and dropped broadcast requests.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateObserver is called after every state transition.
func WithStateObserver(observe func(ConnectionState)) Option {
	return func(c *Channel) { c.observe = observe }
}

// New returns a Disconnected channel over transport that publishes changes on bus.
func New(transport Transport, bus *eventbus.Bus, opts ...Option) *Channel {
	c := &Channel{
		transport: transport,
		bus:       bus,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:     Disconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start moves to Connecting and hands control of the connection to the transport.
// A transport that fails to start leaves the channel Disconnected; the failure is logged, not returned.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	c.setState(Connecting)
	err := c.transport.Start(ctx, Lifecycle{
		Connected:    c.onConnected,
		Reconnecting: c.onReconnecting,
		Closed:       c.onClosed,
	})
	if err != nil {
		c.logger.Warn("sync channel failed to start", slog.String("error", err.Error()))
		c.onClosed(err)
	}
	return nil
}

// State reports the current connection state.
func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestBroadcast asks the server to notify every client. It does nothing unless Connected.
func (c *Channel) RequestBroadcast(ctx context.Context) {
	if c.State() != Connected {
		c.logger.Debug("broadcast request dropped", slog.String("state", c.State().String()))
		return
	}
	if err := c.transport.Invoke(ctx, syncproto.MethodRequestBroadcast); err != nil {
		c.logger.Warn("broadcast request failed", slog.String("error", err.Error()))
	}
}

// Bind makes local publishes on TopicSendUpdateOrders request a server broadcast.
// Binding an already bound channel does nothing.
func (c *Channel) Bind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bindings) > 0 {
		return
	}
	token := c.bus.Subscribe(eventbus.TopicSendUpdateOrders, func(any) {
		c.RequestBroadcast(context.Background())
	})
	c.bindings = append(c.bindings, token)
}

// Close unbinds from the bus and stops the transport.
func (c *Channel) Close() {
	c.mu.Lock()
	bindings := c.bindings
	c.bindings = nil
	c.mu.Unlock()
	for _, token := range bindings {
		c.bus.Unsubscribe(token)
	}
	if err := c.transport.Close(); err != nil {
		c.logger.Debug("transport close", slog.String("error", err.Error()))
	}
	c.onClosed(nil)
}

func (c *Channel) onConnected() {
	c.mu.Lock()
	previous := c.inbound
	c.inbound = nil
	c.mu.Unlock()
	if previous != nil {
		previous()
	}
	remove := c.transport.Handle(syncproto.MethodUpdateOrders, c.onUpdateOrders)
	c.mu.Lock()
	c.inbound = remove
	c.mu.Unlock()
	c.setState(Connected)
}

func (c *Channel) onReconnecting(err error) {
	if err != nil {
		c.logger.Info("sync channel connection lost", slog.String("error", err.Error()))
	}
	c.setState(Reconnecting)
}

func (c *Channel) onClosed(err error) {
	c.mu.Lock()
	remove := c.inbound
	c.inbound = nil
	c.mu.Unlock()
	if remove != nil {
		remove()
	}
	if err != nil {
		c.logger.Warn("sync channel closed", slog.String("error", err.Error()))
	}
	c.setState(Disconnected)
}

func (c *Channel) onUpdateOrders(payload json.RawMessage) {
	var token string
	if err := json.Unmarshal(payload, &token); err != nil {
		token = string(payload)
	}
	c.bus.Publish(eventbus.TopicOrdersUpdated, token)
}

func (c *Channel) setState(next ConnectionState) {
	c.mu.Lock()
	changed := c.state != next
	c.state = next
	c.mu.Unlock()
	if changed && c.observe != nil {
		c.observe(next)
	}
}
