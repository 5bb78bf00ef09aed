package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// DefaultSubject carries order change tokens between API instances.
const DefaultSubject = "bakery.orders.changed"

type relayMessage struct {
	Origin string `json:"origin"`
	Token  string `json:"token"`
}

// NATSRelay shares change tokens with hubs in other processes over core NATS.
// Messages a relay published itself are not delivered back to it.
type NATSRelay struct {
	conn    *nats.Conn
	subject string
	origin  string
	logger  *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// ConnectNATS dials url and keeps reconnecting for the lifetime of the relay.
func ConnectNATS(url, subject string, logger *slog.Logger) (*NATSRelay, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	conn, err := nats.Connect(url,
		nats.Name("bakery-orders-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats relay disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats relay reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return NewNATSRelay(conn, subject, logger), nil
}

// NewNATSRelay wraps an existing connection. The relay owns conn from here on.
func NewNATSRelay(conn *nats.Conn, subject string, logger *slog.Logger) *NATSRelay {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &NATSRelay{conn: conn, subject: subject, origin: ulid.Make().String(), logger: logger}
}

func (r *NATSRelay) Publish(_ context.Context, token string) error {
	data, err := json.Marshal(relayMessage{Origin: r.origin, Token: token})
	if err != nil {
		return err
	}
	return r.conn.Publish(r.subject, data)
}

func (r *NATSRelay) Subscribe(deliver func(token string)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return errors.New("nats relay already subscribed")
	}
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		var m relayMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			r.logger.Warn("malformed relay message", slog.String("error", err.Error()))
			return
		}
		if m.Origin == r.origin || m.Token == "" {
			return
		}
		deliver(m.Token)
	})
	if err != nil {
		return err
	}
	r.sub = sub
	return r.conn.Flush()
}

func (r *NATSRelay) Close() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	r.conn.Close()
}

var _ Relay = (*NATSRelay)(nil)
