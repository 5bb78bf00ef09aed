// Package orderform holds the client-side order form: the draft, its line items,
// the validator, and the controller that submits it.
package orderform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Apurer/bakery-orders/internal/client/eventbus"
	"github.com/Apurer/bakery-orders/internal/client/orderapi"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

var (
	// ErrSubmission wraps a failed create, update or delete call. The draft is kept.
	ErrSubmission = errors.New("order could not be saved")
	// ErrUnauthorized is returned when the form is opened without a logged-in session.
	ErrUnauthorized = errors.New("login required")
	ErrNotEditing   = errors.New("order form is not editable")
	ErrNotPersisted = errors.New("order has not been saved yet")
)

// OrderAPI is the part of the orders API the form calls.
type OrderAPI interface {
	GetOrder(ctx context.Context, id int64) (*ordersdomain.Order, error)
	CreateOrder(ctx context.Context, order *ordersdomain.Order, idempotencyKey string) (*ordersdomain.Order, error)
	UpdateOrder(ctx context.Context, order *ordersdomain.Order) (*ordersdomain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

var _ OrderAPI = (*orderapi.Client)(nil)

// Authenticator reports whether the caller holds a live session.
type Authenticator interface {
	Authenticated() bool
}

// State is the controller lifecycle.
type State int

const (
	Editing State = iota
	Validating
	Submitting
	Closed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Closed:
		return "closed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Outcome tells how a closed form ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSaved
	OutcomeDeleted
	OutcomeCancelled
)

// SubmitStatus is the result of one Submit call.
type SubmitStatus int

const (
	// SubmitInvalid means validation failed; see Validation.
	SubmitInvalid SubmitStatus = iota
	SubmitSaved
	// SubmitIgnored means another submission was already in flight.
	SubmitIgnored
	SubmitFailed
)

// OrderChange is the payload of eventbus.TopicOrderChange.
type OrderChange struct {
	OrderID int64
	Kind    ordersdomain.ChangeKind
}

// Controller owns one order draft from open to close. Safe for concurrent use; at most
// one create, update or delete call is in flight at a time.
type Controller struct {
	mu         sync.Mutex
	state      State
	outcome    Outcome
	draft      *OrderDraft
	validation ValidationResult
	err        error
	saved      *ordersdomain.Order
	// idempotencyKey is reused for retries of an unchanged draft.
	idempotencyKey string

	api              OrderAPI
	bus              *eventbus.Bus
	location         *time.Location
	requestBroadcast bool
	logger           *slog.Logger
}

type Option func(*Controller)

// WithLocation sets the bakery's time zone pickup times are entered in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithBroadcastRequest also publishes eventbus.TopicSendUpdateOrders after every
// successful save or delete so other sessions refresh.
func WithBroadcastRequest() Option {
	return func(c *Controller) {
		c.requestBroadcast = true
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController starts editing an empty new order with no lines.
func NewController(api OrderAPI, bus *eventbus.Bus, products ProductLookup, opts ...Option) *Controller {
	c := newController(api, bus, opts)
	c.draft = NewDraft(products)
	return c
}

func newController(api OrderAPI, bus *eventbus.Bus, opts []Option) *Controller {
	c := &Controller{
		state:    Editing,
		api:      api,
		bus:      bus,
		location: time.Local,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Open prepares the form for order id, or for a new order with one blank line when id is 0.
func Open(ctx context.Context, session Authenticator, api OrderAPI, bus *eventbus.Bus, products ProductLookup, id int64, opts ...Option) (*Controller, error) {
	if session == nil || !session.Authenticated() {
		return nil, ErrUnauthorized
	}
	if id == 0 {
		c := NewController(api, bus, products, opts...)
		c.draft.Lines.Add()
		return c, nil
	}
	order, err := api.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, orderapi.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	c := newController(api, bus, opts)
	c.draft = draftFromOrder(order, products, c.location)
	return c, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Validation returns the result of the last Submit.
func (c *Controller) Validation() ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ValidationResult{Valid: c.validation.Valid, Violations: append([]string(nil), c.validation.Violations...)}
}

// Err returns the last submission error, cleared by the next attempt.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Saved returns the order as the server stored it once the form closed with OutcomeSaved.
func (c *Controller) Saved() *ordersdomain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saved == nil {
		return nil
	}
	return c.saved.Clone()
}

func (c *Controller) OrderID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.ID
}

func (c *Controller) Value(field Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Value(field)
}

// Lines copies the line drafts in display order.
func (c *Controller) Lines() []LineDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Lines.Drafts()
}

func (c *Controller) Edit(field Field, value string) error {
	return c.mutate(func(d *OrderDraft) error { return d.Set(field, value) })
}

func (c *Controller) AddLine(initial ...LineDraft) (LineKey, error) {
	var key LineKey
	err := c.mutate(func(d *OrderDraft) error {
		key = d.Lines.Add(initial...)
		return nil
	})
	return key, err
}

func (c *Controller) RemoveLine(key LineKey) error {
	return c.mutate(func(d *OrderDraft) error {
		if !d.Lines.RemoveAt(key) {
			return ErrLineNotFound
		}
		return nil
	})
}

func (c *Controller) UpdateLine(key LineKey, field LineField, value string) error {
	return c.mutate(func(d *OrderDraft) error { return d.Lines.UpdateField(key, field, value) })
}

func (c *Controller) SetLineProduct(key LineKey, product ordersdomain.Product) error {
	return c.mutate(func(d *OrderDraft) error { return d.Lines.SetProduct(key, product) })
}

func (c *Controller) mutate(apply func(*OrderDraft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return ErrNotEditing
	}
	if err := apply(c.draft); err != nil {
		return err
	}
	c.idempotencyKey = ""
	return nil
}

// Submit validates the draft and, when valid, creates or updates the order.
// A Submit while another is in flight returns SubmitIgnored without calling the API.
func (c *Controller) Submit(ctx context.Context) (SubmitStatus, error) {
	c.mu.Lock()
	switch c.state {
	case Validating, Submitting:
		c.mu.Unlock()
		return SubmitIgnored, nil
	case Closed:
		c.mu.Unlock()
		return SubmitIgnored, ErrNotEditing
	}

	c.state = Validating
	c.err = nil
	c.validation = Validate(c.draft)
	order, ok := c.draft.toOrder(c.location)
	if !c.validation.Valid || !ok {
		c.state = Editing
		c.mu.Unlock()
		return SubmitInvalid, nil
	}
	if c.idempotencyKey == "" {
		c.idempotencyKey = ulid.Make().String()
	}
	key := c.idempotencyKey
	c.state = Submitting
	c.mu.Unlock()

	kind := ordersdomain.ChangeUpdated
	var saved *ordersdomain.Order
	var err error
	if order.ID == 0 {
		kind = ordersdomain.ChangeCreated
		saved, err = c.api.CreateOrder(ctx, order, key)
	} else {
		saved, err = c.api.UpdateOrder(ctx, order)
	}

	c.mu.Lock()
	if err != nil {
		c.err = fmt.Errorf("%w: %w", ErrSubmission, err)
		c.state = Editing
		failure := c.err
		c.mu.Unlock()
		c.logger.LogAttrs(ctx, slog.LevelWarn, "order submission failed",
			slog.Int64("order.id", order.ID), slog.String("error", err.Error()))
		return SubmitFailed, failure
	}
	if saved == nil {
		saved = order
	}
	c.saved = saved
	c.outcome = OutcomeSaved
	c.state = Closed
	c.mu.Unlock()

	c.logger.LogAttrs(ctx, slog.LevelInfo, "order saved",
		slog.Int64("order.id", saved.ID), slog.String("order.change", string(kind)))
	c.announce(OrderChange{OrderID: saved.ID, Kind: kind})
	return SubmitSaved, nil
}

// Cancel closes the form without saving.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Editing {
		return ErrNotEditing
	}
	c.state = Closed
	c.outcome = OutcomeCancelled
	return nil
}

// Delete removes the persisted order and closes the form.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Editing {
		c.mu.Unlock()
		return ErrNotEditing
	}
	id := c.draft.ID
	if id == 0 {
		c.mu.Unlock()
		return ErrNotPersisted
	}
	c.state = Submitting
	c.err = nil
	c.mu.Unlock()

	err := c.api.DeleteOrder(ctx, id)

	c.mu.Lock()
	if err != nil {
		c.err = fmt.Errorf("%w: %w", ErrSubmission, err)
		c.state = Editing
		failure := c.err
		c.mu.Unlock()
		c.logger.LogAttrs(ctx, slog.LevelWarn, "order deletion failed",
			slog.Int64("order.id", id), slog.String("error", err.Error()))
		return failure
	}
	c.state = Closed
	c.outcome = OutcomeDeleted
	c.mu.Unlock()

	c.logger.LogAttrs(ctx, slog.LevelInfo, "order deleted", slog.Int64("order.id", id))
	c.announce(OrderChange{OrderID: id, Kind: ordersdomain.ChangeDeleted})
	return nil
}

func (c *Controller) announce(change OrderChange) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.TopicOrderChange, change)
	if c.requestBroadcast {
		c.bus.Publish(eventbus.TopicSendUpdateOrders, nil)
	}
}
