package syncchannel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/Apurer/bakery-orders/internal/shared/syncproto"
)

var ErrNotConnected = errors.New("sync transport not connected")

// WebsocketSettings bounds connection timing for the websocket transport.
type WebsocketSettings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout drops a connection that has been silent, pings included, this long.
	ReadTimeout time.Duration
}

func DefaultWebsocketSettings() WebsocketSettings {
	return WebsocketSettings{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      90 * time.Second,
	}
}

// WebsocketTransport speaks the order sync protocol over gorilla/websocket and
// reconnects with exponential backoff until closed.
type WebsocketTransport struct {
	url      string
	token    func() string
	settings WebsocketSettings
	backoff  func() backoff.BackOff
	logger   *slog.Logger

	mu       sync.Mutex
	handlers map[string]map[uint64]func(json.RawMessage)
	nextID   uint64
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex
}

type WebsocketOption func(*WebsocketTransport)

// WithToken supplies the bearer token sent on every dial.
func WithToken(token func() string) WebsocketOption {
	return func(t *WebsocketTransport) { t.token = token }
}

func WithWebsocketSettings(settings WebsocketSettings) WebsocketOption {
	return func(t *WebsocketTransport) { t.settings = settings }
}

// WithBackoff replaces the reconnect policy; the factory is called once per Start.
func WithBackoff(factory func() backoff.BackOff) WebsocketOption {
	return func(t *WebsocketTransport) {
		if factory != nil {
			t.backoff = factory
		}
	}
}

func WithTransportLogger(logger *slog.Logger) WebsocketOption {
	return func(t *WebsocketTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewWebsocketTransport(url string, opts ...WebsocketOption) *WebsocketTransport {
	t := &WebsocketTransport{
		url:      url,
		settings: DefaultWebsocketSettings(),
		backoff:  defaultBackoff,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		handlers: map[string]map[uint64]func(json.RawMessage){},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (t *WebsocketTransport) Start(ctx context.Context, lifecycle Lifecycle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, lifecycle, t.done)
	return nil
}

func (t *WebsocketTransport) Handle(method string, handler func(json.RawMessage)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	if t.handlers[method] == nil {
		t.handlers[method] = map[uint64]func(json.RawMessage){}
	}
	t.handlers[method][id] = handler
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers[method], id)
	}
}

func (t *WebsocketTransport) Invoke(ctx context.Context, method string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(t.settings.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteJSON(syncproto.Frame{Type: method})
}

// Close stops reconnecting and waits for the connection goroutine to exit.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	cancel, done, conn := t.cancel, t.done, t.conn
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	return nil
}

func (t *WebsocketTransport) run(ctx context.Context, lifecycle Lifecycle, done chan struct{}) {
	defer close(done)
	policy := backoff.WithContext(t.backoff(), ctx)
	connectedOnce := false
	for {
		conn, err := t.dial(ctx)
		if err == nil {
			policy.Reset()
			connectedOnce = true
			t.setConn(conn)
			call(lifecycle.Connected)
			err = t.readLoop(ctx, conn)
			t.setConn(nil)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			callErr(lifecycle.Closed, nil)
			return
		}
		t.logger.Debug("sync transport disconnected", slog.String("error", err.Error()))
		if connectedOnce {
			callErr(lifecycle.Reconnecting, err)
		}
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			callErr(lifecycle.Closed, err)
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			callErr(lifecycle.Closed, nil)
			return
		case <-timer.C:
		}
	}
}

func (t *WebsocketTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.settings.HandshakeTimeout,
	}
	header := http.Header{}
	if t.token != nil {
		if token := t.token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, resp, err := dialer.DialContext(ctx, t.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// readLoop dispatches inbound frames on this goroutine so handlers see them in arrival order.
// Cancelling ctx closes conn, which unblocks the pending read.
func (t *WebsocketTransport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(t.settings.ReadTimeout)) }
	if err := extend(); err != nil {
		return err
	}
	conn.SetPingHandler(func(data string) error {
		_ = extend()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(t.settings.WriteTimeout))
	})
	for {
		var frame syncproto.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		for _, handler := range t.handlersFor(frame.Type) {
			handler(frame.Payload)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (t *WebsocketTransport) handlersFor(method string) []func(json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	registered := t.handlers[method]
	list := make([]func(json.RawMessage), 0, len(registered))
	for _, h := range registered {
		list = append(list, h)
	}
	return list
}

func (t *WebsocketTransport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func callErr(fn func(error), err error) {
	if fn != nil {
		fn(err)
	}
}

var _ Transport = (*WebsocketTransport)(nil)
