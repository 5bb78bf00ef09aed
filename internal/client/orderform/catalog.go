package orderform

import (
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// ProductLookup resolves a product reference chosen on a line.
type ProductLookup interface {
	Product(id int64) (ordersdomain.Product, bool)
}

// Catalog is the read-only product list a form picks from. A nil *Catalog is empty.
type Catalog struct {
	products []ordersdomain.Product
	byID     map[int64]int
}

// NewCatalog copies products; later changes to the slice are not seen.
func NewCatalog(products []ordersdomain.Product) *Catalog {
	c := &Catalog{
		products: append([]ordersdomain.Product(nil), products...),
		byID:     make(map[int64]int, len(products)),
	}
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

// Product looks a product up by id.
func (c *Catalog) Product(id int64) (ordersdomain.Product, bool) {
	if c == nil {
		return ordersdomain.Product{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return ordersdomain.Product{}, false
	}
	return c.products[i], true
}

// Search returns products matching query by code prefix, or by name words when query starts with ".".
func (c *Catalog) Search(query string) []ordersdomain.Product {
	if c == nil {
		return nil
	}
	var out []ordersdomain.Product
	for _, p := range c.products {
		if ordersdomain.MatchProduct(p, query) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Products() []ordersdomain.Product {
	if c == nil {
		return nil
	}
	return append([]ordersdomain.Product(nil), c.products...)
}
