package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrEmptyPassword = errors.New("password is required")
	ErrWeakPassword  = errors.New("password must be at least 4 characters")
)

// Operator is a bakery employee allowed to take and edit orders.
type Operator struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash []byte
}

// NewOperator builds an operator with a hashed password.
func NewOperator(username, displayName, password string) (*Operator, error) {
	op := &Operator{DisplayName: strings.TrimSpace(displayName)}
	if err := op.SetUsername(username); err != nil {
		return nil, err
	}
	if err := op.SetPassword(password); err != nil {
		return nil, err
	}
	if op.DisplayName == "" {
		op.DisplayName = op.Username
	}
	return op, nil
}

// SetUsername trims and lowercases the login name.
func (o *Operator) SetUsername(username string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ErrEmptyUsername
	}
	o.Username = username
	return nil
}

// SetPassword stores a bcrypt hash of password.
func (o *Operator) SetPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = hash
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (o *Operator) CheckPassword(password string) bool {
	if len(o.PasswordHash) == 0 || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(o.PasswordHash, []byte(password)) == nil
}

// Validate re-applies invariants before persistence.
func (o *Operator) Validate() error {
	if err := o.SetUsername(o.Username); err != nil {
		return err
	}
	if len(o.PasswordHash) == 0 {
		return ErrEmptyPassword
	}
	return nil
}

// Session is an issued login. ID is the token's unique identifier and the revocation key.
type Session struct {
	ID          string
	Token       string
	OperatorID  int64
	Username    string
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	OperatorID  int64
	Username    string
	DisplayName string
	SessionID   string
}
