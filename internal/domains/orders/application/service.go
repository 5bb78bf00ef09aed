package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

// Service orchestrates order use cases.
type Service struct {
	repo     ports.Repository
	catalog  ports.ProductCatalog
	notifier ports.ChangeNotifier
	now      func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithNotifier announces every persisted change through n.
func WithNotifier(n ports.ChangeNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo ports.Repository, catalog ports.ProductCatalog, opts ...Option) *Service {
	s := &Service{repo: repo, catalog: catalog, notifier: ports.NoopNotifier, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if order.ID != 0 {
		return nil, mapError(ErrIDOnCreate)
	}
	candidate := order.Clone()
	if err := s.prepare(ctx, candidate); err != nil {
		return nil, mapError(err)
	}
	candidate.CreatedAt = s.now()
	saved, err := s.repo.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, saved.ID, domain.ChangeCreated)
	return saved, nil
}

func (s *Service) UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	existing, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	candidate := order.Clone()
	candidate.CreatedAt = existing.CreatedAt
	if err := s.prepare(ctx, candidate); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, saved.ID, domain.ChangeUpdated)
	return saved, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.announce(ctx, id, domain.ChangeDeleted)
	return nil
}

// UpdateLineProgress toggles the fulfillment flags of a single line.
func (s *Service) UpdateLineProgress(ctx context.Context, orderID, lineID int64, progress ports.LineProgress) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	line, err := order.Line(lineID)
	if err != nil {
		return nil, err
	}
	if progress.InProgress != nil {
		line.InProgress = *progress.InProgress
	}
	if progress.Complete != nil {
		line.Complete = *progress.Complete
	}
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, saved.ID, domain.ChangeUpdated)
	return saved, nil
}

func (s *Service) OrdersForDay(ctx context.Context, day time.Time) ([]*domain.Order, error) {
	from := startOfDay(day)
	return s.repo.ListPickups(ctx, from, from.AddDate(0, 0, 1))
}

func (s *Service) UpcomingByDay(ctx context.Context, since time.Time) ([][]*domain.Order, error) {
	orders, err := s.repo.ListPickups(ctx, startOfDay(since), time.Time{})
	if err != nil {
		return nil, err
	}
	return GroupByDay(orders), nil
}

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.List(ctx)
}

// prepare resolves line categories from the catalog, normalizes, and validates.
func (s *Service) prepare(ctx context.Context, order *domain.Order) error {
	if s.catalog != nil {
		for i := range order.Lines {
			line := &order.Lines[i]
			if line.ProductID == domain.UnselectedProduct {
				continue
			}
			product, err := s.catalog.GetByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				return err
			}
			line.Category = product.Category
		}
	}
	order.Normalize()
	return order.Validate()
}

func (s *Service) announce(ctx context.Context, id int64, kind domain.ChangeKind) {
	s.notifier.OrdersChanged(ctx, domain.OrdersChanged{OrderID: id, Kind: kind, Timestamp: s.now()})
}

// GroupByDay splits orders into per-day groups ordered by day then pickup time.
func GroupByDay(orders []*domain.Order) [][]*domain.Order {
	sorted := append([]*domain.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PickupAt.Before(sorted[j].PickupAt) })
	groups := [][]*domain.Order{}
	for _, order := range sorted {
		n := len(groups)
		if n > 0 && groups[n-1][0].PickupDay().Equal(order.PickupDay()) {
			groups[n-1] = append(groups[n-1], order)
			continue
		}
		groups = append(groups, []*domain.Order{order})
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var _ ports.Service = (*Service)(nil)
