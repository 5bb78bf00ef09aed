package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

var _ ports.ProductCatalog = (*Catalog)(nil)

// Catalog is an in-memory product catalog.
type Catalog struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

// NewCatalog seeds the catalog with the given products.
func NewCatalog(products ...domain.Product) *Catalog {
	c := &Catalog{products: make(map[int64]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// DefaultProducts is the development catalog used when no database is configured.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Code: "101", Name: "Хляб Добруджа", Category: "Хляб", Price: 2.2},
		{ID: 2, Code: "102", Name: "Козунак", Category: "Сладкиши", Price: 9.5},
		{ID: 3, Code: "201", Name: "Баница със сирене", Category: "Тестени", Price: 12, Aliases: []string{"banitsa"}},
		{ID: 4, Code: "301", Name: `Торта "Гараш"`, Category: "Торти", Price: 48, Aliases: []string{"garash"}},
		{ID: 5, Code: "302", Name: "Фото торта", Category: "Торти", Price: 55},
	}
}

func (c *Catalog) List(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (c *Catalog) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}
