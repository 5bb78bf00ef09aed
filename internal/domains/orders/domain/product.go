package domain

import (
	"errors"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry an order line can reference.
type Product struct {
	ID       int64
	Code     string
	Name     string
	Category string
	Price    float64
	Aliases  []string
}

// IsCake reports whether lines for this product may carry cake details.
func (p Product) IsCake() bool {
	return IsCakeCategory(p.Category)
}

// MatchProduct filters products the way operators search the catalog.
//
// A query starting with "." matches when every following word is contained in the
// product name or one of its aliases; any other query is a product code prefix.
func MatchProduct(p Product, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	if !strings.HasPrefix(query, ".") {
		return strings.HasPrefix(p.Code, query)
	}
	haystacks := append([]string{p.Name}, p.Aliases...)
	for i, h := range haystacks {
		haystacks[i] = searchable(h)
	}
	for _, part := range strings.Fields(query[1:]) {
		part = strings.ToLower(part)
		found := false
		for _, h := range haystacks {
			if strings.Contains(h, part) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var searchReplacer = strings.NewReplacer(`"`, "", "“", "", "”", "", ".", "", "-", "")

func searchable(s string) string {
	return searchReplacer.Replace(strings.ToLower(s))
}
