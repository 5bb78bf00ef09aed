// Package views keeps order listings current: each view re-fetches when the event bus
// reports a remote or local order change and hands the result to a render callback.
package views

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
)

var ErrAlreadyMounted = errors.New("view already mounted")

type options struct {
	logger  *slog.Logger
	onError func(error)
}

// Option configures a view.
type Option func(*options)

// WithLogger logs dropped results and fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithErrorHandler receives fetch failures of the mounted view.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// refresher runs fetches in the background and renders only results that belong to the
// current mount and are newer than anything rendered so far.
type refresher[T any] struct {
	name   string
	bus    *eventbus.Bus
	fetch  func(ctx context.Context) (T, error)
	render func(T)
	opts   options

	mu         sync.Mutex
	mounted    bool
	generation uint64
	issued     uint64
	applied    uint64
	tokens     []eventbus.Token
	ctx        context.Context
	cancel     context.CancelFunc

	// renderMu serializes render callbacks and lets unmount wait for one in progress.
	renderMu sync.Mutex
	inflight sync.WaitGroup
}

func (r *refresher[T]) mount(ctx context.Context) error {
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return ErrAlreadyMounted
	}
	r.mounted = true
	r.generation++
	r.ctx, r.cancel = context.WithCancel(ctx)
	handler := func(any) { r.refresh() }
	r.tokens = []eventbus.Token{
		r.bus.Subscribe(eventbus.TopicOrdersUpdated, handler),
		r.bus.Subscribe(eventbus.TopicOrderChange, handler),
	}
	r.mu.Unlock()

	r.refresh()
	return nil
}

// unmount releases the subscriptions. Fetches still running are cancelled and their
// results dropped. Render callbacks must not call unmount.
func (r *refresher[T]) unmount() {
	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		return
	}
	r.mounted = false
	r.generation++
	tokens := r.tokens
	r.tokens = nil
	r.cancel()
	r.mu.Unlock()

	for _, token := range tokens {
		r.bus.Unsubscribe(token)
	}
	r.renderMu.Lock()
	r.renderMu.Unlock()
}

func (r *refresher[T]) refresh() {
	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		return
	}
	r.issued++
	seq, generation, ctx := r.issued, r.generation, r.ctx
	r.inflight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inflight.Done()
		result, err := r.fetch(ctx)

		r.renderMu.Lock()
		defer r.renderMu.Unlock()
		r.mu.Lock()
		current := r.mounted && generation == r.generation && seq > r.applied
		if current && err == nil {
			r.applied = seq
		}
		r.mu.Unlock()
		if !current {
			r.opts.logger.LogAttrs(ctx, slog.LevelDebug, "dropping stale view result",
				slog.String("view", r.name), slog.Uint64("view.fetch", seq))
			return
		}
		if err != nil {
			r.opts.logger.LogAttrs(ctx, slog.LevelWarn, "view fetch failed",
				slog.String("view", r.name), slog.String("error", err.Error()))
			if r.opts.onError != nil {
				r.opts.onError(err)
			}
			return
		}
		r.render(result)
	}()
}

func (r *refresher[T]) isMounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted
}

// wait blocks until every started fetch has finished.
func (r *refresher[T]) wait() {
	r.inflight.Wait()
}
