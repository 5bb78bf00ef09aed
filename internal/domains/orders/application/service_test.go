package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

type fakeOrderRepo struct {
	orders map[int64]*domain.Order
	nextID int64
	err    error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*domain.Order{}}
}

func (f *fakeOrderRepo) Save(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	clone := order.Clone()
	if clone.ID == 0 {
		f.nextID++
		clone.ID = f.nextID
	}
	for i := range clone.Lines {
		if clone.Lines[i].ID == 0 {
			clone.Lines[i].ID = int64(i + 1)
		}
	}
	f.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o.Clone(), nil
	}
	return nil, ports.ErrNotFound
}

func (f *fakeOrderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) ListPickups(_ context.Context, from, to time.Time) ([]*domain.Order, error) {
	var list []*domain.Order
	for _, o := range f.orders {
		if o.PickupAt.Before(from) || (!to.IsZero() && !o.PickupAt.Before(to)) {
			continue
		}
		list = append(list, o.Clone())
	}
	return list, nil
}

type fakeCatalog map[int64]domain.Product

func (c fakeCatalog) List(context.Context) ([]domain.Product, error) {
	list := make([]domain.Product, 0, len(c))
	for _, p := range c {
		list = append(list, p)
	}
	return list, nil
}

func (c fakeCatalog) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

type recordingNotifier struct {
	events []domain.OrdersChanged
}

func (n *recordingNotifier) OrdersChanged(_ context.Context, event domain.OrdersChanged) {
	n.events = append(n.events, event)
}

var testCatalog = fakeCatalog{
	1: {ID: 1, Code: "101", Name: "Хляб", Category: "Хляб"},
	4: {ID: 4, Code: "301", Name: "Торта", Category: "Торти"},
}

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeOrderRepo, *recordingNotifier) {
	repo := newFakeOrderRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, testCatalog, WithNotifier(notifier), WithClock(func() time.Time { return fixedNow }))
	return svc, repo, notifier
}

func newOrder(pickup time.Time, lines ...domain.Line) *domain.Order {
	if len(lines) == 0 {
		lines = []domain.Line{{ProductID: 1, Quantity: 2}}
	}
	return &domain.Order{ClientName: "  Ivan Petrov ", PickupAt: pickup, Lines: lines}
}

func TestCreateOrder_ResolvesCategoriesAndPersists(t *testing.T) {
	svc, _, notifier := newTestService()

	saved, err := svc.CreateOrder(context.Background(), newOrder(fixedNow.Add(26*time.Hour),
		domain.Line{ProductID: 1, Quantity: 1, Cake: &domain.CakeDetails{Inscription: "dropped"}},
		domain.Line{ProductID: 4, Quantity: 1, Cake: &domain.CakeDetails{Inscription: " Наздраве "}},
	))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	assert.Equal(t, "Ivan Petrov", saved.ClientName)
	assert.Equal(t, fixedNow, saved.CreatedAt)
	assert.Equal(t, "Хляб", saved.Lines[0].Category)
	assert.Nil(t, saved.Lines[0].Cake)
	require.NotNil(t, saved.Lines[1].Cake)
	assert.Equal(t, "Наздраве", saved.Lines[1].Cake.Inscription)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, domain.ChangeCreated, notifier.events[0].Kind)
	assert.Equal(t, saved.ID, notifier.events[0].OrderID)
}

func TestCreateOrder_RejectsInvalidInput(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()

	withID := newOrder(fixedNow)
	withID.ID = 9
	_, err := svc.CreateOrder(ctx, withID)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, ErrIDOnCreate)

	_, err = svc.CreateOrder(ctx, newOrder(fixedNow, domain.Line{ProductID: 1, Quantity: 0}))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.CreateOrder(ctx, newOrder(fixedNow, domain.Line{ProductID: 77, Quantity: 1}))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	assert.Empty(t, repo.orders)
	assert.Empty(t, notifier.events)
}

func TestCreateOrder_DoesNotMutateCallerOrder(t *testing.T) {
	svc, _, _ := newTestService()
	input := newOrder(fixedNow)

	_, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Zero(t, input.ID)
	assert.Empty(t, input.Lines[0].Category)
}

func TestUpdateOrder_KeepsCreatedAt(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	saved, err := svc.CreateOrder(ctx, newOrder(fixedNow))
	require.NoError(t, err)

	saved.CreatedAt = time.Time{}
	saved.ClientPhone = "0888 123 456"
	updated, err := svc.UpdateOrder(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, updated.CreatedAt)
	assert.Equal(t, "0888 123 456", updated.ClientPhone)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, domain.ChangeUpdated, notifier.events[1].Kind)

	_, err = svc.UpdateOrder(ctx, &domain.Order{ID: 404})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestDeleteOrder_Announces(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	saved, err := svc.CreateOrder(ctx, newOrder(fixedNow))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, saved.ID))
	require.ErrorIs(t, svc.DeleteOrder(ctx, saved.ID), ports.ErrNotFound)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, domain.ChangeDeleted, notifier.events[1].Kind)
}

func TestUpdateLineProgress(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	saved, err := svc.CreateOrder(ctx, newOrder(fixedNow))
	require.NoError(t, err)
	lineID := saved.Lines[0].ID

	yes := true
	updated, err := svc.UpdateLineProgress(ctx, saved.ID, lineID, ports.LineProgress{InProgress: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Lines[0].InProgress)
	assert.False(t, updated.Lines[0].Complete)

	updated, err = svc.UpdateLineProgress(ctx, saved.ID, lineID, ports.LineProgress{Complete: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Lines[0].InProgress)
	assert.True(t, updated.Complete())
	assert.Len(t, notifier.events, 3)

	_, err = svc.UpdateLineProgress(ctx, saved.ID, 999, ports.LineProgress{Complete: &yes})
	require.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestOrdersForDayAndUpcoming(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{
		day.Add(15 * time.Hour),
		day.Add(9 * time.Hour),
		day.AddDate(0, 0, 2).Add(10 * time.Hour),
		day.AddDate(0, 0, -3),
	} {
		_, err := svc.CreateOrder(ctx, newOrder(at))
		require.NoError(t, err)
	}

	sameDay, err := svc.OrdersForDay(ctx, day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Len(t, sameDay, 2)

	groups, err := svc.UpcomingByDay(ctx, day.Add(20*time.Hour))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Len(t, groups[0], 2)
	assert.True(t, groups[0][0].PickupAt.Before(groups[0][1].PickupAt))
	assert.Equal(t, day.AddDate(0, 0, 2), groups[1][0].PickupDay())
}

func TestGroupByDay_Empty(t *testing.T) {
	groups := GroupByDay(nil)
	require.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestCreateOrder_PropagatesRepositoryFailure(t *testing.T) {
	svc, repo, notifier := newTestService()
	repo.err = errors.New("connection reset")

	_, err := svc.CreateOrder(context.Background(), newOrder(fixedNow))
	require.EqualError(t, err, "connection reset")
	assert.Empty(t, notifier.events)
}

func TestFingerprintOrder_IgnoresServerFields(t *testing.T) {
	a := newOrder(fixedNow)
	b := a.Clone()
	b.ID = 12
	b.CreatedAt = fixedNow
	b.Lines[0].Complete = true
	b.ClientName = "Ivan Petrov"

	ha, err := FingerprintOrder(a)
	require.NoError(t, err)
	hb, err := FingerprintOrder(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Lines[0].Quantity = 3
	hc, err := FingerprintOrder(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
