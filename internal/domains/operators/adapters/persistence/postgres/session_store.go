package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore persists issued operator sessions in PostgreSQL.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore wires a PostgreSQL-backed session store. Caller owns DB lifecycle.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

type sessionRecord struct {
	ID         string    `gorm:"primaryKey;column:id;size:26"`
	OperatorID int64     `gorm:"column:operator_id;index"`
	ExpiresAt  time.Time `gorm:"column:expires_at;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (sessionRecord) TableName() string { return "operator_sessions" }

func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if session.ID == "" {
		return errors.New("session id is required")
	}
	rec := sessionRecord{ID: session.ID, OperatorID: session.OperatorID, ExpiresAt: session.ExpiresAt}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"operator_id", "expires_at"}),
		}).
		Create(&rec).Error
}

func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ? AND expires_at > ?", sessionID, time.Now()).
		Count(&count).Error
	return count > 0, err
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&sessionRecord{}, "id = ?", sessionID).Error
}

// PurgeExpired removes all expired sessions. Use for housekeeping or cron.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&sessionRecord{})
	return result.RowsAffected, result.Error
}

func (s *SessionStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres session store not configured")
	}
	return nil
}
