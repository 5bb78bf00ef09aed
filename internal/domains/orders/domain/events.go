package domain

import "time"

// ChangeKind classifies an order mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// OrdersChanged is raised after any order mutation is persisted.
type OrdersChanged struct {
	OrderID   int64
	Kind      ChangeKind
	Timestamp time.Time
}

// EventName returns the event type identifier.
func (e OrdersChanged) EventName() string {
	return "orders.order." + string(e.Kind)
}

// OccurredAt returns when the change happened.
func (e OrdersChanged) OccurredAt() time.Time {
	return e.Timestamp
}
