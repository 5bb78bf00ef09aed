package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter.
type Repository struct {
	mu         sync.RWMutex
	orders     map[int64]*domain.Order
	nextID     int64
	nextLineID int64
}

func NewRepository() *Repository {
	return &Repository{orders: map[int64]*domain.Order{}}
}

func (r *Repository) Save(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := order.Clone()
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == 0 {
		r.nextID++
		clone.ID = r.nextID
	} else if _, ok := r.orders[clone.ID]; !ok {
		return nil, ports.ErrNotFound
	}
	for i := range clone.Lines {
		if clone.Lines[i].ID == 0 {
			r.nextLineID++
			clone.Lines[i].ID = r.nextLineID
		} else if clone.Lines[i].ID > r.nextLineID {
			r.nextLineID = clone.Lines[i].ID
		}
	}
	r.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *Repository) ListPickups(_ context.Context, from, to time.Time) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if order.PickupAt.Before(from) {
			continue
		}
		if !to.IsZero() && !order.PickupAt.Before(to) {
			continue
		}
		list = append(list, order.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].PickupAt.Equal(list[j].PickupAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].PickupAt.Before(list[j].PickupAt)
	})
	return list, nil
}

// Reset drops every stored order. Used by contract test state handlers.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = map[int64]*domain.Order{}
}

// Seed stores order under its own id, bypassing id assignment. Used by contract test state handlers.
func (r *Repository) Seed(order *domain.Order) {
	clone := order.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID > r.nextID {
		r.nextID = clone.ID
	}
	for _, line := range clone.Lines {
		if line.ID > r.nextLineID {
			r.nextLineID = line.ID
		}
	}
	r.orders[clone.ID] = clone
}
