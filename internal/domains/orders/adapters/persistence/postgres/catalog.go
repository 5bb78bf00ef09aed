package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

var _ ports.ProductCatalog = (*Catalog)(nil)

// Catalog reads products from PostgreSQL.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog wires a PostgreSQL-backed product catalog. Caller manages DB lifecycle.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

type productRecord struct {
	ID       int64          `gorm:"primaryKey;column:id"`
	Code     string         `gorm:"column:code;uniqueIndex"`
	Name     string         `gorm:"column:name"`
	Category string         `gorm:"column:category;index"`
	Price    float64        `gorm:"column:price"`
	Aliases  pq.StringArray `gorm:"column:aliases;type:text[]"`
}

func (productRecord) TableName() string { return "products" }

func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	if err := c.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := c.db.WithContext(ctx).Order("code").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, rec.toDomain())
	}
	return products, nil
}

func (c *Catalog) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := c.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := c.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	product := record.toDomain()
	return &product, nil
}

// Seed upserts products by id so a fresh database has a usable catalog.
func (c *Catalog) Seed(ctx context.Context, products []domain.Product) error {
	if err := c.ensureDB(); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, productRecord{
			ID:       p.ID,
			Code:     p.Code,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
			Aliases:  pq.StringArray(p.Aliases),
		})
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "name", "category", "price", "aliases"}),
		}).
		Create(&records).Error
}

func (c *Catalog) ensureDB() error {
	if c == nil || c.db == nil {
		return errors.New("postgres product catalog not configured")
	}
	return nil
}

func (r productRecord) toDomain() domain.Product {
	return domain.Product{
		ID:       r.ID,
		Code:     r.Code,
		Name:     r.Name,
		Category: r.Category,
		Price:    r.Price,
		Aliases:  append([]string(nil), r.Aliases...),
	}
}
