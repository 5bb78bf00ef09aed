package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps operators in memory, keyed by username.
type Repository struct {
	mu        sync.RWMutex
	operators map[string]domain.Operator
	nextID    int64
}

func NewRepository() *Repository {
	return &Repository{operators: map[string]domain.Operator{}}
}

func (r *Repository) Save(_ context.Context, op *domain.Operator) (*domain.Operator, error) {
	if op == nil {
		return nil, errors.New("operator is nil")
	}
	clone := *op
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.operators[clone.Username]; ok {
		clone.ID = existing.ID
	} else {
		r.nextID++
		clone.ID = r.nextID
	}
	r.operators[clone.Username] = clone
	saved := clone
	return &saved, nil
}

func (r *Repository) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operators[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &op, nil
}

func (r *Repository) List(_ context.Context) ([]*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Operator, 0, len(r.operators))
	for _, op := range r.operators {
		op := op
		list = append(list, &op)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
