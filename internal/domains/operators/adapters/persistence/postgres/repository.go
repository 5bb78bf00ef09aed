package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists operators in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models lists the records owned by the operators adapters.
func Models() []any {
	return []any{&operatorRecord{}, &sessionRecord{}}
}

type operatorRecord struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	Username     string    `gorm:"column:username;uniqueIndex"`
	DisplayName  string    `gorm:"column:display_name"`
	PasswordHash []byte    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (operatorRecord) TableName() string { return "operators" }

// Save inserts or updates an operator keyed by username.
func (r *Repository) Save(ctx context.Context, op *domain.Operator) (*domain.Operator, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, errors.New("operator is nil")
	}
	clone := *op
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	record := operatorRecord{Username: clone.Username, DisplayName: clone.DisplayName, PasswordHash: clone.PasswordHash}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "password_hash", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByUsername(ctx, record.Username)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record operatorRecord
	err := r.db.WithContext(ctx).First(&record, "username = ?", strings.ToLower(strings.TrimSpace(username))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.Operator, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []operatorRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*domain.Operator, 0, len(records))
	for i := range records {
		list = append(list, records[i].toDomain())
	}
	return list, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres operator repository not configured")
	}
	return nil
}

func (r operatorRecord) toDomain() *domain.Operator {
	return &domain.Operator{
		ID:           r.ID,
		Username:     r.Username,
		DisplayName:  r.DisplayName,
		PasswordHash: append([]byte(nil), r.PasswordHash...),
	}
}
