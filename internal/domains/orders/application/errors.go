package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrIDOnCreate rejects create commands that already carry an identifier.
	ErrIDOnCreate = errors.New("new orders must not carry an id")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidClientName) ||
		errors.Is(err, domain.ErrInvalidPickup) ||
		errors.Is(err, domain.ErrNegativeAdvance) ||
		errors.Is(err, domain.ErrNoLines) ||
		errors.Is(err, domain.ErrInvalidProduct) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrCakeDetailsNotAllowed) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, ErrIDOnCreate) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
