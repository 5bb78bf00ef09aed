package bakeryserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets clients retry order creation safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrdersAPI wires HTTP transport with the orders service and workflows.
type OrdersAPI struct {
	service   ordersports.Service
	workflows ordersports.WorkflowOrchestrator
	location  *time.Location
	now       func() time.Time
}

type OrdersOption func(*OrdersAPI)

// WithLocation sets the bakery's time zone used to interpret ?date=.
func WithLocation(loc *time.Location) OrdersOption {
	return func(api *OrdersAPI) {
		if loc != nil {
			api.location = loc
		}
	}
}

func WithNow(now func() time.Time) OrdersOption {
	return func(api *OrdersAPI) {
		if now != nil {
			api.now = now
		}
	}
}

// NewOrdersAPI creates an OrdersAPI; workflows may be nil to create through the service directly.
func NewOrdersAPI(service ordersports.Service, workflows ordersports.WorkflowOrchestrator, opts ...OrdersOption) OrdersAPI {
	api := OrdersAPI{service: service, workflows: workflows, location: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(&api)
	}
	return api
}

// Get /api/products
func (api *OrdersAPI) ListProducts(c *gin.Context) {
	products, err := api.service.Products(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainProducts(products))
}

// Get /api/orders
// With ?date=YYYY-MM-DD returns that day as a single group; otherwise every upcoming day.
func (api *OrdersAPI) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		groups, err := api.service.UpcomingByDay(ctx, api.now().In(api.location))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrderGroups(groups))
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, api.location)
	if err != nil {
		respondBadRequest(c, fmt.Errorf("date must be YYYY-MM-DD: %w", err))
		return
	}
	orders, err := api.service.OrdersForDay(ctx, day)
	if err != nil {
		respondError(c, err)
		return
	}
	groups := [][]*ordersdomain.Order{}
	if len(orders) > 0 {
		groups = append(groups, orders)
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrderGroups(groups))
}

// Get /api/orders/:orderId
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Post /api/orders
func (api *OrdersAPI) CreateOrder(c *gin.Context) {
	var payload orderhttpmapper.Order
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order := orderhttpmapper.ToDomainOrder(payload)
	if principal, ok := PrincipalFrom(c); ok {
		order.OperatorID = principal.OperatorID
	}
	saved, err := api.createOrder(c.Request.Context(), ordersports.CreateOrderInput{
		Order:          order,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromDomainOrder(saved))
}

func (api *OrdersAPI) createOrder(ctx context.Context, input ordersports.CreateOrderInput) (*ordersdomain.Order, error) {
	if api.workflows != nil {
		return api.workflows.CreateOrder(ctx, input)
	}
	return api.service.CreateOrder(ctx, input.Order)
}

// Put /api/orders/:orderId
func (api *OrdersAPI) UpdateOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.Order
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	if payload.ID != 0 && payload.ID != id {
		respondBadRequest(c, errors.New("body id does not match path"))
		return
	}
	order := orderhttpmapper.ToDomainOrder(payload)
	order.ID = id
	if principal, ok := PrincipalFrom(c); ok {
		order.OperatorID = principal.OperatorID
	}
	updated, err := api.service.UpdateOrder(c.Request.Context(), order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(updated))
}

// Delete /api/orders/:orderId
func (api *OrdersAPI) DeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	if err := api.service.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Patch /api/orders/:orderId/lines/:lineId
func (api *OrdersAPI) UpdateLineProgress(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	lineID, ok := parseIDParam(c, "lineId")
	if !ok {
		return
	}
	var payload orderhttpmapper.LineProgress
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	if payload.InProgress == nil && payload.Complete == nil {
		respondBadRequest(c, errors.New("inProgress or complete is required"))
		return
	}
	updated, err := api.service.UpdateLineProgress(c.Request.Context(), orderID, lineID,
		ordersports.LineProgress{InProgress: payload.InProgress, Complete: payload.Complete})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(updated))
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}
