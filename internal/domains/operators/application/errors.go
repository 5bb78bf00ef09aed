package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid operator input")
	// ErrAuthentication wraps every reason a caller is not logged in.
	ErrAuthentication = errors.New("authentication failed")
	// ErrInvalidToken means the bearer token is malformed, forged, or expired.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSessionRevoked means the token is well-formed but its session was logged out or purged.
	ErrSessionRevoked = errors.New("session revoked")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyUsername) ||
		errors.Is(err, domain.ErrEmptyPassword) ||
		errors.Is(err, domain.ErrWeakPassword) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, ports.ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionRevoked) {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return err
}
