package application

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
)

// DefaultSessionTTL applies when the issuer is built without an explicit lifetime.
const DefaultSessionTTL = 12 * time.Hour

const defaultIssuer = "bakery-orders"

type sessionClaims struct {
	Username    string `json:"usr"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{secret: append([]byte(nil), secret...), ttl: ttl, issuer: defaultIssuer}, nil
}

// Issue creates a signed session for op valid from now.
func (i *TokenIssuer) Issue(op *domain.Operator, now time.Time) (*domain.Session, error) {
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(i.ttl))
	claims := sessionClaims{
		Username:    op.Username,
		DisplayName: op.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(op.ID, 10),
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:          claims.ID,
		Token:       signed,
		OperatorID:  op.ID,
		Username:    op.Username,
		DisplayName: op.DisplayName,
		IssuedAt:    issuedAt.Time,
		ExpiresAt:   expiresAt.Time,
	}, nil
}

// Verify checks signature, issuer, and expiry at now and returns the encoded session.
func (i *TokenIssuer) Verify(raw string, now time.Time) (*domain.Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	operatorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	session := &domain.Session{
		ID:          claims.ID,
		Token:       raw,
		OperatorID:  operatorID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
