package views

import (
	"context"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// BoardAPI lists upcoming orders grouped by pickup day.
type BoardAPI interface {
	Upcoming(ctx context.Context) ([][]*ordersdomain.Order, error)
}

// BoardView shows one column per upcoming pickup day.
type BoardView struct {
	refresher[[][]*ordersdomain.Order]
}

// NewBoardView shows upcoming orders. It does nothing until mounted.
func NewBoardView(api BoardAPI, bus *eventbus.Bus, render func(columns [][]*ordersdomain.Order), opts ...Option) *BoardView {
	return &BoardView{refresher: refresher[[][]*ordersdomain.Order]{
		name:   "board",
		bus:    bus,
		opts:   buildOptions(opts),
		fetch:  api.Upcoming,
		render: render,
	}}
}

// Mount subscribes to order changes and loads the board.
func (v *BoardView) Mount(ctx context.Context) error {
	return v.mount(ctx)
}

func (v *BoardView) Unmount() {
	v.unmount()
}

func (v *BoardView) Refresh() {
	v.refresh()
}

func (v *BoardView) Mounted() bool {
	return v.isMounted()
}
