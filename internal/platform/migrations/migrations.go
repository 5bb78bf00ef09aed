package migrations

import (
	"gorm.io/gorm"

	operatorspg "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/persistence/postgres"
	orderspg "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/persistence/postgres"
)

// Models returns every record the bounded contexts persist, in dependency order.
func Models() []any {
	models := append([]any{}, orderspg.Models()...)
	return append(models, operatorspg.Models()...)
}

// Run applies the schema for the bounded contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(Models()...)
}
