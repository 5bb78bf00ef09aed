// Package eventbus fans notifications out to independent view components.
//
// Dispatch is synchronous on the publisher's goroutine. Handlers for one publish run
// in subscription order against the subscriber list as it was when the publish
// started, so subscribing or unsubscribing from inside a handler only affects later
// publishes.
//
// Publishing from inside a handler is reentrant: the nested publish is dispatched
// completely before the outer publish moves on to its next handler.
package eventbus

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

const (
	// TopicOrdersUpdated carries the change token pushed by the server.
	TopicOrdersUpdated = "DBOrdersUpdated"
	// TopicSendUpdateOrders asks the sync channel to request a server broadcast.
	TopicSendUpdateOrders = "SendUpdateOrders"
	// TopicOrderChange is published locally after this session saved or deleted an order.
	TopicOrderChange = "ORDER CHANGE"
)

// Handler receives the payload of one publish.
type Handler func(payload any)

// Token identifies one subscription. The zero Token is never issued.
type Token uint64

type subscription struct {
	token   Token
	handler Handler
}

// Bus is a topic-keyed publish/subscribe hub. The zero value is not usable; use New.
type Bus struct {
	logger *slog.Logger

	mu     sync.Mutex
	next   Token
	topics map[string][]subscription
	owners map[Token]string
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger receives recovered handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a bus with no subscriptions.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		topics: map[string][]subscription{},
		owners: map[Token]string{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for topic and returns the token that removes it.
func (b *Bus) Subscribe(topic string, handler Handler) Token {
	if handler == nil {
		panic("eventbus: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	token := b.next
	// copy on write: in-flight publishes keep iterating their own snapshot
	next := slices.Clone(b.topics[topic])
	b.topics[topic] = append(next, subscription{token: token, handler: handler})
	b.owners[token] = topic
	return token
}

// Unsubscribe removes the subscription behind token. It reports whether one was removed.
func (b *Bus) Unsubscribe(token Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	topic, ok := b.owners[token]
	if !ok {
		return false
	}
	delete(b.owners, token)
	subs := b.topics[topic]
	i := slices.IndexFunc(subs, func(s subscription) bool { return s.token == token })
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(subs), i, i+1)
	if len(next) == 0 {
		delete(b.topics, topic)
	} else {
		b.topics[topic] = next
	}
	return true
}

// Publish calls every handler subscribed to topic, in subscription order.
// A handler that panics is logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	snapshot := b.topics[topic]
	b.mu.Unlock()
	for _, sub := range snapshot {
		b.dispatch(topic, sub, payload)
	}
}

// Count returns the number of live subscriptions on topic.
func (b *Bus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

func (b *Bus) dispatch(topic string, sub subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("topic", topic),
				slog.Uint64("token", uint64(sub.token)),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	sub.handler(payload)
}
