package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

const waitFor = 2 * time.Second

// scriptedAPI answers each fetch from the reply channel of its call number.
type scriptedAPI struct {
	mu      sync.Mutex
	calls   int
	days    []time.Time
	replies map[int]chan reply
}

type reply struct {
	orders []*ordersdomain.Order
	err    error
}

func newScriptedAPI() *scriptedAPI {
	return &scriptedAPI{replies: map[int]chan reply{}}
}

// hold makes call n block until release(n) is called.
func (a *scriptedAPI) hold(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies[n] = make(chan reply, 1)
}

func (a *scriptedAPI) release(n int, r reply) {
	a.mu.Lock()
	ch := a.replies[n]
	a.mu.Unlock()
	ch <- r
}

func (a *scriptedAPI) next() reply {
	a.mu.Lock()
	a.calls++
	n := a.calls
	ch, held := a.replies[n]
	a.mu.Unlock()
	if !held {
		return reply{orders: []*ordersdomain.Order{{ID: int64(n)}}}
	}
	return <-ch
}

func (a *scriptedAPI) OrdersForDay(_ context.Context, day time.Time) ([]*ordersdomain.Order, error) {
	a.mu.Lock()
	a.days = append(a.days, day)
	a.mu.Unlock()
	r := a.next()
	return r.orders, r.err
}

func (a *scriptedAPI) Upcoming(context.Context) ([][]*ordersdomain.Order, error) {
	r := a.next()
	if r.err != nil {
		return nil, r.err
	}
	return [][]*ordersdomain.Order{r.orders}, nil
}

func (a *scriptedAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// waitCalls blocks until n fetches have started, so the next fetch gets call number n+1.
func (a *scriptedAPI) waitCalls(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return a.callCount() >= n }, waitFor, time.Millisecond)
}

type renders struct {
	ch chan []*ordersdomain.Order
}

func newRenders() *renders {
	return &renders{ch: make(chan []*ordersdomain.Order, 16)}
}

func (r *renders) day(_ time.Time, orders []*ordersdomain.Order) {
	r.ch <- orders
}

func (r *renders) next(t *testing.T) []*ordersdomain.Order {
	t.Helper()
	select {
	case orders := <-r.ch:
		return orders
	case <-time.After(waitFor):
		t.Fatal("no render")
		return nil
	}
}

func (r *renders) none(t *testing.T) {
	t.Helper()
	select {
	case orders := <-r.ch:
		t.Fatalf("unexpected render %v", orders)
	default:
	}
}

var day = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func TestDayView_MountLoadsAndRefreshesOnChanges(t *testing.T) {
	api := newScriptedAPI()
	bus := eventbus.New()
	out := newRenders()
	view := NewDayView(api, bus, day, out.day)

	require.NoError(t, view.Mount(context.Background()))
	assert.Equal(t, int64(1), out.next(t)[0].ID)

	bus.Publish(eventbus.TopicOrdersUpdated, "01JAB")
	assert.Equal(t, int64(2), out.next(t)[0].ID)

	bus.Publish(eventbus.TopicOrderChange, struct{}{})
	assert.Equal(t, int64(3), out.next(t)[0].ID)

	bus.Publish(eventbus.TopicSendUpdateOrders, nil)
	view.wait()
	out.none(t)
	assert.Equal(t, 3, api.callCount())

	view.Unmount()
}

func TestDayView_UnmountReleasesSubscriptions(t *testing.T) {
	bus := eventbus.New()
	view := NewDayView(newScriptedAPI(), bus, day, newRenders().day)

	require.NoError(t, view.Mount(context.Background()))
	assert.Equal(t, 1, bus.Count(eventbus.TopicOrdersUpdated))
	assert.Equal(t, 1, bus.Count(eventbus.TopicOrderChange))
	assert.ErrorIs(t, view.Mount(context.Background()), ErrAlreadyMounted)

	view.Unmount()
	view.wait()
	assert.False(t, view.Mounted())
	assert.Zero(t, bus.Count(eventbus.TopicOrdersUpdated))
	assert.Zero(t, bus.Count(eventbus.TopicOrderChange))

	view.Unmount()
}

func TestDayView_DiscardsResultArrivingAfterUnmount(t *testing.T) {
	api := newScriptedAPI()
	api.hold(1)
	bus := eventbus.New()
	out := newRenders()
	view := NewDayView(api, bus, day, out.day)

	require.NoError(t, view.Mount(context.Background()))
	view.Unmount()
	api.release(1, reply{orders: []*ordersdomain.Order{{ID: 99}}})
	view.wait()

	out.none(t)
	bus.Publish(eventbus.TopicOrdersUpdated, "token")
	view.Refresh()
	view.wait()
	assert.Equal(t, 1, api.callCount())
	out.none(t)
}

func TestDayView_RemountIgnoresPreviousMountResult(t *testing.T) {
	api := newScriptedAPI()
	api.hold(1)
	out := newRenders()
	view := NewDayView(api, eventbus.New(), day, out.day)

	require.NoError(t, view.Mount(context.Background()))
	api.waitCalls(t, 1)
	view.Unmount()
	require.NoError(t, view.Mount(context.Background()))
	assert.Equal(t, int64(2), out.next(t)[0].ID)

	api.release(1, reply{orders: []*ordersdomain.Order{{ID: 1}}})
	view.wait()
	out.none(t)
	view.Unmount()
}

func TestDayView_DropsOlderResultThatArrivesLast(t *testing.T) {
	api := newScriptedAPI()
	api.hold(1)
	bus := eventbus.New()
	out := newRenders()
	view := NewDayView(api, bus, day, out.day)

	require.NoError(t, view.Mount(context.Background()))
	api.waitCalls(t, 1)
	bus.Publish(eventbus.TopicOrdersUpdated, "token")
	assert.Equal(t, int64(2), out.next(t)[0].ID)

	api.release(1, reply{orders: []*ordersdomain.Order{{ID: 1}}})
	view.wait()
	out.none(t)
	view.Unmount()
}

func TestDayView_ErrorsGoToHandler(t *testing.T) {
	api := newScriptedAPI()
	api.hold(1)
	errs := make(chan error, 1)
	out := newRenders()
	view := NewDayView(api, eventbus.New(), day, out.day, WithErrorHandler(func(err error) { errs <- err }))

	require.NoError(t, view.Mount(context.Background()))
	api.release(1, reply{err: errors.New("503")})
	view.wait()

	select {
	case err := <-errs:
		assert.EqualError(t, err, "503")
	case <-time.After(waitFor):
		t.Fatal("error handler not called")
	}
	out.none(t)

	view.Refresh()
	assert.Equal(t, int64(2), out.next(t)[0].ID)
	view.Unmount()
}

func TestDayView_SetDay(t *testing.T) {
	api := newScriptedAPI()
	out := newRenders()
	view := NewDayView(api, eventbus.New(), day, out.day)
	require.NoError(t, view.Mount(context.Background()))
	out.next(t)

	next := day.AddDate(0, 0, 1)
	view.SetDay(next)
	out.next(t)
	assert.Equal(t, next, view.Day())

	api.mu.Lock()
	assert.Equal(t, []time.Time{day, next}, api.days)
	api.mu.Unlock()
	view.Unmount()
}

func TestBoardView(t *testing.T) {
	api := newScriptedAPI()
	bus := eventbus.New()
	columns := make(chan [][]*ordersdomain.Order, 4)
	view := NewBoardView(api, bus, func(c [][]*ordersdomain.Order) { columns <- c })

	require.NoError(t, view.Mount(context.Background()))
	select {
	case got := <-columns:
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0][0].ID)
	case <-time.After(waitFor):
		t.Fatal("no render")
	}

	bus.Publish(eventbus.TopicOrdersUpdated, "token")
	select {
	case got := <-columns:
		assert.Equal(t, int64(2), got[0][0].ID)
	case <-time.After(waitFor):
		t.Fatal("no render")
	}

	view.Unmount()
	assert.False(t, view.Mounted())
	assert.Zero(t, bus.Count(eventbus.TopicOrdersUpdated))
}
