package domain

import "strings"

// UnselectedProduct marks a line whose product has not been chosen yet.
const UnselectedProduct int64 = 0

// CakeDetails carries the customization only cake lines may have.
type CakeDetails struct {
	Inscription string
	Photo       string
}

// Line is one product entry within an order.
//
// Cake is nil for standard lines. It may only be set when Category denotes a cake.
type Line struct {
	ID         int64
	ProductID  int64
	Category   string
	Quantity   float64
	Note       string
	Cake       *CakeDetails
	InProgress bool
	Complete   bool
}

// Kind names the line variant.
func (l Line) Kind() string {
	if l.Cake != nil {
		return "cake"
	}
	return "standard"
}

// Validate checks the line invariants.
func (l Line) Validate() error {
	if l.ProductID == UnselectedProduct {
		return ErrInvalidProduct
	}
	if !(l.Quantity > 0) {
		return ErrInvalidQuantity
	}
	if l.Cake != nil && !IsCakeCategory(l.Category) {
		return ErrCakeDetailsNotAllowed
	}
	return nil
}

// Normalize trims text fields and clears cake details the category does not permit.
func (l *Line) Normalize() {
	l.Note = strings.TrimSpace(l.Note)
	if l.Cake == nil {
		return
	}
	if !IsCakeCategory(l.Category) {
		l.Cake = nil
		return
	}
	l.Cake.Inscription = strings.TrimSpace(l.Cake.Inscription)
	l.Cake.Photo = strings.TrimSpace(l.Cake.Photo)
}

// Clone copies the line including its cake details.
func (l Line) Clone() Line {
	if l.Cake != nil {
		cake := *l.Cake
		l.Cake = &cake
	}
	return l
}

// IsCakeCategory reports whether products of the category accept an inscription and photo.
// The stem "торт" matches both the singular and plural Bulgarian category names.
func IsCakeCategory(category string) bool {
	category = strings.ToLower(category)
	return strings.Contains(category, "торт") || strings.Contains(category, "cake")
}
