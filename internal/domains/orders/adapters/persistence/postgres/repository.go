package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders and their lines in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models lists the records owned by the orders adapters, in dependency order.
// Schema is applied by the migrations package.
func Models() []any {
	return []any{&productRecord{}, &orderRecord{}, &lineRecord{}, &idempotencyRecord{}}
}

type orderRecord struct {
	ID             int64        `gorm:"primaryKey;column:id"`
	OperatorID     int64        `gorm:"column:operator_id;index"`
	PickupAt       time.Time    `gorm:"column:pickup_at;index"`
	ClientName     string       `gorm:"column:client_name"`
	ClientPhone    string       `gorm:"column:client_phone"`
	AdvancePayment float64      `gorm:"column:advance_payment"`
	Paid           bool         `gorm:"column:paid"`
	CreatedAt      time.Time    `gorm:"column:created_at;index"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
	Lines          []lineRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

type lineRecord struct {
	ID              int64   `gorm:"primaryKey;column:id"`
	OrderID         int64   `gorm:"column:order_id;index"`
	Position        int     `gorm:"column:position"`
	ProductID       int64   `gorm:"column:product_id;index"`
	Category        string  `gorm:"column:category"`
	Quantity        float64 `gorm:"column:quantity"`
	Note            string  `gorm:"column:note"`
	IsCake          bool    `gorm:"column:is_cake"`
	CakeInscription string  `gorm:"column:cake_inscription"`
	CakePhoto       string  `gorm:"column:cake_photo"`
	InProgress      bool    `gorm:"column:in_progress"`
	Complete        bool    `gorm:"column:complete"`
}

func (lineRecord) TableName() string { return "order_lines" }

// Save inserts a new order or replaces an existing one together with its lines.
func (r *Repository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	lines := record.Lines
	record.Lines = nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if record.ID != 0 {
			var count int64
			if err := tx.Model(&orderRecord{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ports.ErrNotFound
			}
		}
		if err := tx.Omit("Lines").Save(&record).Error; err != nil {
			return err
		}
		keep := make([]int64, 0, len(lines))
		for _, line := range lines {
			if line.ID != 0 {
				keep = append(keep, line.ID)
			}
		}
		stale := tx.Where("order_id = ?", record.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&lineRecord{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = record.ID
			lines[i].Position = i
			if err := tx.Save(&lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID fetches an order and its lines.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.withLines(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Delete removes an order; lines cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&lineRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&orderRecord{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListPickups returns orders picked up in [from, to).
func (r *Repository) ListPickups(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.withLines(ctx).Where("pickup_at >= ?", from)
	if !to.IsZero() {
		query = query.Where("pickup_at < ?", to)
	}
	var records []orderRecord
	if err := query.Order("pickup_at, id").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (r *Repository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	rec := orderRecord{
		ID:             order.ID,
		OperatorID:     order.OperatorID,
		PickupAt:       order.PickupAt,
		ClientName:     order.ClientName,
		ClientPhone:    order.ClientPhone,
		AdvancePayment: order.AdvancePayment,
		Paid:           order.Paid,
		CreatedAt:      order.CreatedAt,
		Lines:          make([]lineRecord, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		lr := lineRecord{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Category:   line.Category,
			Quantity:   line.Quantity,
			Note:       line.Note,
			InProgress: line.InProgress,
			Complete:   line.Complete,
		}
		if line.Cake != nil {
			lr.IsCake = true
			lr.CakeInscription = line.Cake.Inscription
			lr.CakePhoto = line.Cake.Photo
		}
		rec.Lines = append(rec.Lines, lr)
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:             r.ID,
		OperatorID:     r.OperatorID,
		PickupAt:       r.PickupAt,
		ClientName:     r.ClientName,
		ClientPhone:    r.ClientPhone,
		AdvancePayment: r.AdvancePayment,
		Paid:           r.Paid,
		CreatedAt:      r.CreatedAt,
		Lines:          make([]domain.Line, 0, len(r.Lines)),
	}
	for _, lr := range r.Lines {
		line := domain.Line{
			ID:         lr.ID,
			ProductID:  lr.ProductID,
			Category:   lr.Category,
			Quantity:   lr.Quantity,
			Note:       lr.Note,
			InProgress: lr.InProgress,
			Complete:   lr.Complete,
		}
		if lr.IsCake {
			line.Cake = &domain.CakeDetails{Inscription: lr.CakeInscription, Photo: lr.CakePhoto}
		}
		order.Lines = append(order.Lines, line)
	}
	return order
}
