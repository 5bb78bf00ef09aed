package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MinClientNameLength is the shortest client name accepted on an order.
const MinClientNameLength = 3

var (
	ErrInvalidClientName     = errors.New("client name must be at least 3 characters")
	ErrInvalidPickup         = errors.New("pickup time is required")
	ErrNegativeAdvance       = errors.New("advance payment must not be negative")
	ErrNoLines               = errors.New("order must contain at least one line")
	ErrInvalidProduct        = errors.New("line product is required")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrCakeDetailsNotAllowed = errors.New("cake details are only allowed for cake products")
	ErrLineNotFound          = errors.New("order line not found")
)

// Order is the bakery order aggregate.
type Order struct {
	ID             int64
	OperatorID     int64
	PickupAt       time.Time
	ClientName     string
	ClientPhone    string
	AdvancePayment float64
	Paid           bool
	CreatedAt      time.Time
	Lines          []Line
}

// Validate enforces invariants on the aggregate and its lines.
func (o *Order) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(o.ClientName)) < MinClientNameLength {
		return ErrInvalidClientName
	}
	if o.PickupAt.IsZero() {
		return ErrInvalidPickup
	}
	if o.AdvancePayment < 0 {
		return ErrNegativeAdvance
	}
	if len(o.Lines) == 0 {
		return ErrNoLines
	}
	for i := range o.Lines {
		if err := o.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize trims free text and drops cake details from lines that cannot carry them.
func (o *Order) Normalize() {
	o.ClientName = strings.TrimSpace(o.ClientName)
	o.ClientPhone = strings.TrimSpace(o.ClientPhone)
	for i := range o.Lines {
		o.Lines[i].Normalize()
	}
}

// PickupDay returns the calendar day of the pickup in the pickup's location.
func (o *Order) PickupDay() time.Time {
	y, m, d := o.PickupAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, o.PickupAt.Location())
}

// Complete reports whether every line has been fulfilled.
func (o *Order) Complete() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for _, line := range o.Lines {
		if !line.Complete {
			return false
		}
	}
	return true
}

// Line returns a pointer to the line with the given identifier.
func (o *Order) Line(id int64) (*Line, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

// Clone returns a deep copy so callers can mutate without sharing line storage.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = make([]Line, len(o.Lines))
	for i, line := range o.Lines {
		clone.Lines[i] = line.Clone()
	}
	return &clone
}
