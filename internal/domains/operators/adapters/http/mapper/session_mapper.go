package mapper

import (
	"time"

	operatordomain "github.com/Apurer/bakery-orders/internal/domains/operators/domain"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the login response body.
type Session struct {
	Token       string    `json:"token"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// FromDomainSession converts an issued session to its transport shape.
func FromDomainSession(session *operatordomain.Session) Session {
	if session == nil {
		return Session{}
	}
	return Session{
		Token:       session.Token,
		Username:    session.Username,
		DisplayName: session.DisplayName,
		ExpiresAt:   session.ExpiresAt,
	}
}
