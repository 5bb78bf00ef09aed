package bakeryserver

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	operatorsports "github.com/Apurer/bakery-orders/internal/domains/operators/ports"
	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
	apierrors "github.com/Apurer/bakery-orders/internal/shared/errors"
)

var responder = apierrors.NewResponder("", mapOrderError, mapOperatorError)

func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	responder.BadRequest(c, err.Error())
}

func mapOrderError(err error) (apierrors.Problem, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrInvalidInput):
		violation := strings.TrimPrefix(err.Error(), ordersapp.ErrInvalidInput.Error()+": ")
		return apierrors.NewValidationProblem("order rejected", violation), true
	case errors.Is(err, ordersports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ordersdomain.ErrLineNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ordersports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail("idempotency key was already used for a different order"), true
	}
	return apierrors.Problem{}, false
}

func mapOperatorError(err error) (apierrors.Problem, bool) {
	switch {
	case errors.Is(err, operatorsapp.ErrAuthentication), errors.Is(err, operatorsports.ErrInvalidCredentials):
		return apierrors.ErrUnauthorized.WithDetail("login required"), true
	case errors.Is(err, operatorsapp.ErrInvalidInput):
		violation := strings.TrimPrefix(err.Error(), operatorsapp.ErrInvalidInput.Error()+": ")
		return apierrors.NewValidationProblem("operator rejected", violation), true
	}
	return apierrors.Problem{}, false
}
