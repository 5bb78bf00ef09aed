package eventbus

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string) Handler {
	return func(payload any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name+":"+payload.(string))
	}
}

func TestPublishInSubscriptionOrder(t *testing.T) {
	bus := New()
	rec := &recorder{}
	bus.Subscribe("T", rec.handler("A"))
	b := bus.Subscribe("T", rec.handler("B"))
	bus.Subscribe("T", rec.handler("C"))
	bus.Subscribe("other", rec.handler("X"))

	bus.Publish("T", "x")
	assert.Equal(t, []string{"A:x", "B:x", "C:x"}, rec.calls)

	require.True(t, bus.Unsubscribe(b))
	rec.calls = nil
	bus.Publish("T", "y")
	assert.Equal(t, []string{"A:y", "C:y"}, rec.calls)
	assert.Equal(t, 2, bus.Count("T"))
}

func TestUnsubscribeUnknownToken(t *testing.T) {
	bus := New()
	token := bus.Subscribe("T", func(any) {})
	assert.True(t, bus.Unsubscribe(token))
	assert.False(t, bus.Unsubscribe(token))
	assert.False(t, bus.Unsubscribe(0))
	assert.Zero(t, bus.Count("T"))
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	bus := New()
	bus.Publish("T", "early")
	rec := &recorder{}
	bus.Subscribe("T", rec.handler("late"))
	assert.Empty(t, rec.calls)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	var logs bytes.Buffer
	bus := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	rec := &recorder{}
	bus.Subscribe("T", rec.handler("A"))
	bus.Subscribe("T", func(any) { panic("render failed") })
	bus.Subscribe("T", rec.handler("C"))

	require.NotPanics(t, func() { bus.Publish("T", "x") })
	assert.Equal(t, []string{"A:x", "C:x"}, rec.calls)
	assert.Contains(t, logs.String(), "render failed")
}

func TestUnsubscribeDuringPublishUsesSnapshot(t *testing.T) {
	bus := New()
	rec := &recorder{}
	var second Token
	bus.Subscribe("T", func(p any) {
		rec.handler("A")(p)
		bus.Unsubscribe(second)
	})
	second = bus.Subscribe("T", rec.handler("B"))

	bus.Publish("T", "1")
	bus.Publish("T", "2")
	assert.Equal(t, []string{"A:1", "B:1", "A:2"}, rec.calls)
}

func TestSubscribeDuringPublishWaitsForNextPublish(t *testing.T) {
	bus := New()
	rec := &recorder{}
	once := sync.Once{}
	bus.Subscribe("T", func(p any) {
		rec.handler("A")(p)
		once.Do(func() { bus.Subscribe("T", rec.handler("N")) })
	})

	bus.Publish("T", "1")
	bus.Publish("T", "2")
	assert.Equal(t, []string{"A:1", "A:2", "N:2"}, rec.calls)
}

func TestNestedPublishRunsBeforeRemainingHandlers(t *testing.T) {
	bus := New()
	rec := &recorder{}
	bus.Subscribe("T", func(p any) {
		rec.handler("A")(p)
		if p == "outer" {
			bus.Publish("T", "inner")
		}
	})
	bus.Subscribe("T", rec.handler("B"))

	bus.Publish("T", "outer")
	assert.Equal(t, []string{"A:outer", "A:inner", "B:inner", "B:outer"}, rec.calls)
}

func TestConcurrentUse(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				token := bus.Subscribe("T", func(any) {})
				bus.Publish("T", j)
				bus.Unsubscribe(token)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, bus.Count("T"))
}
