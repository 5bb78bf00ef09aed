package views

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// DayAPI lists the orders of one pickup day.
type DayAPI interface {
	OrdersForDay(ctx context.Context, day time.Time) ([]*ordersdomain.Order, error)
}

// DayRenderFunc receives the orders of day, sorted by pickup time.
type DayRenderFunc func(day time.Time, orders []*ordersdomain.Order)

type dayResult struct {
	day    time.Time
	orders []*ordersdomain.Order
}

// DayView shows the orders of a single day.
type DayView struct {
	refresher[dayResult]

	dayMu sync.Mutex
	day   time.Time
}

// NewDayView shows the orders picked up on day. It does nothing until mounted.
func NewDayView(api DayAPI, bus *eventbus.Bus, day time.Time, render DayRenderFunc, opts ...Option) *DayView {
	v := &DayView{day: day}
	v.refresher = refresher[dayResult]{
		name: "day",
		bus:  bus,
		opts: buildOptions(opts),
		fetch: func(ctx context.Context) (dayResult, error) {
			day := v.Day()
			orders, err := api.OrdersForDay(ctx, day)
			return dayResult{day: day, orders: orders}, err
		},
		render: func(r dayResult) { render(r.day, r.orders) },
	}
	return v
}

// Mount subscribes to order changes and loads the day.
func (v *DayView) Mount(ctx context.Context) error {
	return v.mount(ctx)
}

func (v *DayView) Unmount() {
	v.unmount()
}

// Refresh re-fetches the day; a no-op when not mounted.
func (v *DayView) Refresh() {
	v.refresh()
}

func (v *DayView) Mounted() bool {
	return v.isMounted()
}

func (v *DayView) Day() time.Time {
	v.dayMu.Lock()
	defer v.dayMu.Unlock()
	return v.day
}

// SetDay switches to another day and reloads.
func (v *DayView) SetDay(day time.Time) {
	v.dayMu.Lock()
	v.day = day
	v.dayMu.Unlock()
	v.refresh()
}
