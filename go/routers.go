package bakeryserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
	// Public routes skip the session check.
	Public bool
}

// ApiHandleFunctions bundles every handler group the router mounts.
type ApiHandleFunctions struct {
	OrdersAPI    OrdersAPI
	OperatorsAPI OperatorsAPI
	EventsAPI    EventsAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the API routes to an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	authenticate := handleFunctions.OperatorsAPI.RequireSession()
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		handlers := []gin.HandlerFunc{route.HandlerFunc}
		if !route.Public {
			handlers = append([]gin.HandlerFunc{authenticate}, handlers...)
		}
		router.Handle(route.Method, route.Pattern, handlers...)
	}
	return router
}

// DefaultHandleFunc answers routes that have no implementation wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"Login", http.MethodPost, "/api/login", handleFunctions.OperatorsAPI.Login, true},
		{"Logout", http.MethodPost, "/api/logout", handleFunctions.OperatorsAPI.Logout, false},
		{"ListProducts", http.MethodGet, "/api/products", handleFunctions.OrdersAPI.ListProducts, true},
		{"ListOrders", http.MethodGet, "/api/orders", handleFunctions.OrdersAPI.ListOrders, false},
		{"GetOrder", http.MethodGet, "/api/orders/:orderId", handleFunctions.OrdersAPI.GetOrder, false},
		{"CreateOrder", http.MethodPost, "/api/orders", handleFunctions.OrdersAPI.CreateOrder, false},
		{"UpdateOrder", http.MethodPut, "/api/orders/:orderId", handleFunctions.OrdersAPI.UpdateOrder, false},
		{"DeleteOrder", http.MethodDelete, "/api/orders/:orderId", handleFunctions.OrdersAPI.DeleteOrder, false},
		{"UpdateLineProgress", http.MethodPatch, "/api/orders/:orderId/lines/:lineId", handleFunctions.OrdersAPI.UpdateLineProgress, false},
		{"OrderEvents", http.MethodGet, "/api/events", handleFunctions.EventsAPI.Serve, false},
	}
}
