package orderform

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

var (
	ErrLineNotFound   = errors.New("line item not found")
	ErrNotCakeLine    = errors.New("line item does not take cake details")
	ErrUnknownProduct = errors.New("unknown product")
	ErrUnknownField   = errors.New("unknown field")
)

// LineKey addresses one draft within a LineItems collection. Keys are never reused.
type LineKey int

// LineField names an editable field of a line draft.
type LineField string

const (
	LineProduct     LineField = "product"
	LineQuantity    LineField = "quantity"
	LineNote        LineField = "note"
	LineInscription LineField = "inscription"
	LinePhoto       LineField = "photo"
)

// LineDraft is the editable projection of one order line.
//
// Cake is the cake variant: non-nil exactly when the selected product's category takes
// an inscription and photo. ID and the fulfillment flags round-trip lines of a loaded order.
type LineDraft struct {
	Key        LineKey
	ID         int64
	ProductID  int64
	Category   string
	Quantity   float64
	Note       string
	Cake       *ordersdomain.CakeDetails
	InProgress bool
	Complete   bool
}

func (d LineDraft) clone() LineDraft {
	if d.Cake != nil {
		cake := *d.Cake
		d.Cake = &cake
	}
	return d
}

// LineItems is the ordered collection of line drafts owned by one form.
// It is not safe for concurrent use; Controller serializes access.
type LineItems struct {
	items    []LineDraft
	next     LineKey
	products ProductLookup
}

func NewLineItems(products ProductLookup) *LineItems {
	return &LineItems{products: products}
}

// Add appends a draft and returns its key. Without initial the line has no product
// and zero quantity.
func (l *LineItems) Add(initial ...LineDraft) LineKey {
	var draft LineDraft
	if len(initial) > 0 {
		draft = initial[0].clone()
	}
	l.next++
	draft.Key = l.next
	draft.Cake = cakeVariant(draft.Category, draft.Cake)
	l.items = append(l.items, draft)
	return draft.Key
}

// RemoveAt drops the draft with key; the others keep their keys and order.
func (l *LineItems) RemoveAt(key LineKey) bool {
	i := l.index(key)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// UpdateField sets one field from its text form. Quantity text that is not a finite
// number becomes 0. Product text is a product id; empty or "0" clears the selection.
func (l *LineItems) UpdateField(key LineKey, field LineField, value string) error {
	i := l.index(key)
	if i < 0 {
		return ErrLineNotFound
	}
	item := &l.items[i]
	switch field {
	case LineProduct:
		value = strings.TrimSpace(value)
		if value == "" || value == "0" {
			item.ProductID = ordersdomain.UnselectedProduct
			item.Category = ""
			item.Cake = nil
			return nil
		}
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ErrUnknownProduct
		}
		if l.products == nil {
			return ErrUnknownProduct
		}
		product, ok := l.products.Product(id)
		if !ok {
			return ErrUnknownProduct
		}
		l.setProduct(item, product)
	case LineQuantity:
		item.Quantity = parseQuantity(value)
	case LineNote:
		item.Note = value
	case LineInscription:
		if item.Cake == nil {
			return ErrNotCakeLine
		}
		item.Cake.Inscription = value
	case LinePhoto:
		if item.Cake == nil {
			return ErrNotCakeLine
		}
		item.Cake.Photo = value
	default:
		return ErrUnknownField
	}
	return nil
}

// SetProduct selects product for the line, keeping cake details only while the
// category still takes them.
func (l *LineItems) SetProduct(key LineKey, product ordersdomain.Product) error {
	i := l.index(key)
	if i < 0 {
		return ErrLineNotFound
	}
	l.setProduct(&l.items[i], product)
	return nil
}

func (l *LineItems) setProduct(item *LineDraft, product ordersdomain.Product) {
	item.ProductID = product.ID
	item.Category = product.Category
	item.Cake = cakeVariant(product.Category, item.Cake)
}

func (l *LineItems) Get(key LineKey) (LineDraft, bool) {
	i := l.index(key)
	if i < 0 {
		return LineDraft{}, false
	}
	return l.items[i].clone(), true
}

// Keys lists the keys in display order.
func (l *LineItems) Keys() []LineKey {
	keys := make([]LineKey, 0, len(l.items))
	for _, item := range l.items {
		keys = append(keys, item.Key)
	}
	return keys
}

func (l *LineItems) Len() int {
	return len(l.items)
}

// Drafts copies the drafts in display order.
func (l *LineItems) Drafts() []LineDraft {
	out := make([]LineDraft, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, item.clone())
	}
	return out
}

// ToOrderLines materializes the drafts as order lines in display order.
func (l *LineItems) ToOrderLines() []ordersdomain.Line {
	lines := make([]ordersdomain.Line, 0, len(l.items))
	for _, item := range l.items {
		line := ordersdomain.Line{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Category:   item.Category,
			Quantity:   item.Quantity,
			Note:       strings.TrimSpace(item.Note),
			InProgress: item.InProgress,
			Complete:   item.Complete,
		}
		if item.Cake != nil {
			line.Cake = &ordersdomain.CakeDetails{
				Inscription: strings.TrimSpace(item.Cake.Inscription),
				Photo:       strings.TrimSpace(item.Cake.Photo),
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func (l *LineItems) index(key LineKey) int {
	return slices.IndexFunc(l.items, func(item LineDraft) bool { return item.Key == key })
}

func cakeVariant(category string, current *ordersdomain.CakeDetails) *ordersdomain.CakeDetails {
	if !ordersdomain.IsCakeCategory(category) {
		return nil
	}
	if current == nil {
		return &ordersdomain.CakeDetails{}
	}
	return current
}

// parseQuantity accepts "1.5" and "1,5"; anything that is not a finite number is 0.
func parseQuantity(text string) float64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
