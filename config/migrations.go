package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250301_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Driver{}, &models.Vehicle{},
					&models.Invoice{}, &models.InvoiceItem{}, &models.DeliveryProof{},
					&models.AppNotification{})
			},
		},
		{
			ID: "20250415_index_unread_notifications",
			Migrate: func(tx *gorm.DB) error {
				// Consume polls filter on (recipient_id, read); the composite
				// index keeps the conditional update cheap.
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread ON notifications (recipient_id, read)").Error
			},
		},
		{
			ID: "20250502_import_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.ImportRecord{})
			},
		},
	})
	return m.Migrate()
}
