package bakeryserver

import (
	"github.com/gin-gonic/gin"

	"github.com/Apurer/bakery-orders/internal/platform/realtime"
)

// EventsAPI upgrades authenticated clients onto the order sync channel.
type EventsAPI struct {
	hub *realtime.Hub
}

func NewEventsAPI(hub *realtime.Hub) EventsAPI {
	return EventsAPI{hub: hub}
}

// Get /api/events
func (api *EventsAPI) Serve(c *gin.Context) {
	if api.hub == nil {
		DefaultHandleFunc(c)
		return
	}
	subject := "anonymous"
	if principal, ok := PrincipalFrom(c); ok {
		subject = principal.Username
	}
	// the upgrader has already answered the request when this fails
	if err := api.hub.ServeWS(c.Writer, c.Request, subject); err != nil {
		_ = c.Error(err)
	}
}
