package mapper

import (
	"time"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// Order is the JSON shape of an order on the wire.
type Order struct {
	ID             int64      `json:"id"`
	PickupAt       time.Time  `json:"pickupAt"`
	ClientName     string     `json:"clientName"`
	ClientPhone    string     `json:"clientPhone,omitempty"`
	AdvancePayment float64    `json:"advancePayment"`
	Paid           bool       `json:"paid"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	Complete       bool       `json:"complete"`
	Lines          []Line     `json:"lines"`
}

// Line is the JSON shape of one order line. Cake is omitted for standard lines.
type Line struct {
	ID         int64        `json:"id,omitempty"`
	ProductID  int64        `json:"productId"`
	Category   string       `json:"category,omitempty"`
	Quantity   float64      `json:"quantity"`
	Note       string       `json:"note,omitempty"`
	Cake       *CakeDetails `json:"cake,omitempty"`
	InProgress bool         `json:"inProgress"`
	Complete   bool         `json:"complete"`
}

type CakeDetails struct {
	Inscription string `json:"inscription,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// LineProgress is the PATCH body toggling fulfillment flags.
type LineProgress struct {
	InProgress *bool `json:"inProgress,omitempty"`
	Complete   *bool `json:"complete,omitempty"`
}

// Product is the JSON shape of a catalog entry.
type Product struct {
	ID       int64    `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	Aliases  []string `json:"aliases,omitempty"`
	IsCake   bool     `json:"isCake"`
}

// ToDomainOrder converts a transport order into the domain model.
func ToDomainOrder(order Order) *ordersdomain.Order {
	result := &ordersdomain.Order{
		ID:             order.ID,
		PickupAt:       order.PickupAt,
		ClientName:     order.ClientName,
		ClientPhone:    order.ClientPhone,
		AdvancePayment: order.AdvancePayment,
		Paid:           order.Paid,
		Lines:          make([]ordersdomain.Line, 0, len(order.Lines)),
	}
	if order.CreatedAt != nil {
		result.CreatedAt = *order.CreatedAt
	}
	for _, line := range order.Lines {
		result.Lines = append(result.Lines, ToDomainLine(line))
	}
	return result
}

func ToDomainLine(line Line) ordersdomain.Line {
	result := ordersdomain.Line{
		ID:         line.ID,
		ProductID:  line.ProductID,
		Category:   line.Category,
		Quantity:   line.Quantity,
		Note:       line.Note,
		InProgress: line.InProgress,
		Complete:   line.Complete,
	}
	if line.Cake != nil {
		result.Cake = &ordersdomain.CakeDetails{Inscription: line.Cake.Inscription, Photo: line.Cake.Photo}
	}
	return result
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *ordersdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	result := Order{
		ID:             order.ID,
		PickupAt:       order.PickupAt,
		ClientName:     order.ClientName,
		ClientPhone:    order.ClientPhone,
		AdvancePayment: order.AdvancePayment,
		Paid:           order.Paid,
		Complete:       order.Complete(),
		Lines:          make([]Line, 0, len(order.Lines)),
	}
	if !order.CreatedAt.IsZero() {
		created := order.CreatedAt
		result.CreatedAt = &created
	}
	for _, line := range order.Lines {
		result.Lines = append(result.Lines, FromDomainLine(line))
	}
	return result
}

func FromDomainLine(line ordersdomain.Line) Line {
	result := Line{
		ID:         line.ID,
		ProductID:  line.ProductID,
		Category:   line.Category,
		Quantity:   line.Quantity,
		Note:       line.Note,
		InProgress: line.InProgress,
		Complete:   line.Complete,
	}
	if line.Cake != nil {
		result.Cake = &CakeDetails{Inscription: line.Cake.Inscription, Photo: line.Cake.Photo}
	}
	return result
}

// FromDomainOrderGroups converts per-day groups, keeping empty input as an empty list.
func FromDomainOrderGroups(groups [][]*ordersdomain.Order) [][]Order {
	result := make([][]Order, 0, len(groups))
	for _, group := range groups {
		day := make([]Order, 0, len(group))
		for _, order := range group {
			day = append(day, FromDomainOrder(order))
		}
		result = append(result, day)
	}
	return result
}

// ToDomainOrderGroups is the inverse of FromDomainOrderGroups.
func ToDomainOrderGroups(groups [][]Order) [][]*ordersdomain.Order {
	result := make([][]*ordersdomain.Order, 0, len(groups))
	for _, group := range groups {
		day := make([]*ordersdomain.Order, 0, len(group))
		for _, order := range group {
			day = append(day, ToDomainOrder(order))
		}
		result = append(result, day)
	}
	return result
}

func FromDomainProducts(products []ordersdomain.Product) []Product {
	result := make([]Product, 0, len(products))
	for _, p := range products {
		result = append(result, Product{
			ID:       p.ID,
			Code:     p.Code,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Aliases:  p.Aliases,
			IsCake:   p.IsCake(),
		})
	}
	return result
}

func ToDomainProducts(products []Product) []ordersdomain.Product {
	result := make([]ordersdomain.Product, 0, len(products))
	for _, p := range products {
		result = append(result, ordersdomain.Product{
			ID:       p.ID,
			Code:     p.Code,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Aliases:  p.Aliases,
		})
	}
	return result
}
