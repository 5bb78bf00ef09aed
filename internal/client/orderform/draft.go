package orderform

import (
	"strconv"
	"strings"
	"time"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// Field names an editable scalar field of an order draft.
type Field string

const (
	FieldClientName     Field = "clientName"
	FieldClientPhone    Field = "clientPhone"
	FieldPickupDate     Field = "pickupDate"
	FieldPickupTime     Field = "pickupTime"
	FieldAdvancePayment Field = "advancePayment"
	FieldPaid           Field = "paid"
)

// OrderDraft is an order being edited. Scalar fields hold the text the operator typed.
type OrderDraft struct {
	ID             int64
	ClientName     string
	ClientPhone    string
	PickupDate     string
	PickupTime     string
	AdvancePayment string
	Paid           bool
	Lines          *LineItems

	operatorID int64
	createdAt  time.Time
}

// NewDraft returns an empty draft whose lines resolve products through products.
func NewDraft(products ProductLookup) *OrderDraft {
	return &OrderDraft{Lines: NewLineItems(products)}
}

// Set assigns one scalar field from its text form.
func (d *OrderDraft) Set(field Field, value string) error {
	switch field {
	case FieldClientName:
		d.ClientName = value
	case FieldClientPhone:
		d.ClientPhone = value
	case FieldPickupDate:
		d.PickupDate = value
	case FieldPickupTime:
		d.PickupTime = value
	case FieldAdvancePayment:
		d.AdvancePayment = value
	case FieldPaid:
		paid, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		d.Paid = paid
	default:
		return ErrUnknownField
	}
	return nil
}

// Value reads one scalar field back in text form.
func (d *OrderDraft) Value(field Field) string {
	switch field {
	case FieldClientName:
		return d.ClientName
	case FieldClientPhone:
		return d.ClientPhone
	case FieldPickupDate:
		return d.PickupDate
	case FieldPickupTime:
		return d.PickupTime
	case FieldAdvancePayment:
		return d.AdvancePayment
	case FieldPaid:
		return strconv.FormatBool(d.Paid)
	}
	return ""
}

func draftFromOrder(order *ordersdomain.Order, products ProductLookup, loc *time.Location) *OrderDraft {
	pickup := order.PickupAt.In(loc)
	d := &OrderDraft{
		ID:          order.ID,
		ClientName:  order.ClientName,
		ClientPhone: order.ClientPhone,
		PickupDate:  pickup.Format(time.DateOnly),
		PickupTime:  pickup.Format("15:04"),
		Paid:        order.Paid,
		Lines:       NewLineItems(products),
		operatorID:  order.OperatorID,
		createdAt:   order.CreatedAt,
	}
	if order.AdvancePayment != 0 {
		d.AdvancePayment = strconv.FormatFloat(order.AdvancePayment, 'f', -1, 64)
	}
	for _, line := range order.Lines {
		d.Lines.Add(LineDraft{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Category:   line.Category,
			Quantity:   line.Quantity,
			Note:       line.Note,
			Cake:       line.Cake,
			InProgress: line.InProgress,
			Complete:   line.Complete,
		})
	}
	return d
}

// toOrder builds the order a valid draft describes, with pickup in loc.
func (d *OrderDraft) toOrder(loc *time.Location) (*ordersdomain.Order, bool) {
	day, ok := parsePickupDate(d.PickupDate)
	if !ok {
		return nil, false
	}
	hour, minute, ok := parsePickupTime(d.PickupTime)
	if !ok {
		return nil, false
	}
	advance, ok := parseAdvance(d.AdvancePayment)
	if !ok {
		return nil, false
	}
	return &ordersdomain.Order{
		ID:             d.ID,
		OperatorID:     d.operatorID,
		PickupAt:       time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc),
		ClientName:     strings.TrimSpace(d.ClientName),
		ClientPhone:    strings.TrimSpace(d.ClientPhone),
		AdvancePayment: advance,
		Paid:           d.Paid,
		CreatedAt:      d.createdAt,
		Lines:          d.Lines.ToOrderLines(),
	}, true
}
