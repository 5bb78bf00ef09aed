package bakeryserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	operatorhttpmapper "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/http/mapper"
	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	operatordomain "github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	operatorsports "github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

const principalKey = "bakery.principal"

// OperatorsAPI handles login and guards the session-only routes.
type OperatorsAPI struct {
	service operatorsports.Service
}

func NewOperatorsAPI(service operatorsports.Service) OperatorsAPI {
	return OperatorsAPI{service: service}
}

// Post /api/login
func (api *OperatorsAPI) Login(c *gin.Context) {
	var payload operatorhttpmapper.Credentials
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	session, err := api.service.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, operatorhttpmapper.FromDomainSession(session))
}

// Post /api/logout
func (api *OperatorsAPI) Logout(c *gin.Context) {
	if err := api.service.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequireSession rejects requests without a live operator session.
func (api *OperatorsAPI) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if api.service == nil {
			respondError(c, errors.New("operators service not configured"))
			return
		}
		token := bearerToken(c)
		if token == "" {
			respondError(c, operatorsapp.ErrAuthentication)
			return
		}
		principal, err := api.service.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the operator authenticated for this request, if any.
func PrincipalFrom(c *gin.Context) (*operatordomain.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*operatordomain.Principal)
	return principal, ok
}

// bearerToken reads the Authorization header, falling back to ?access_token for
// websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.Query("access_token"))
}
