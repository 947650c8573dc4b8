package handlers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"entregacerta.com.br/backend/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
// The DSN is named per test so parallel tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Driver{},
		&models.Vehicle{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.DeliveryProof{},
		&models.AppNotification{},
		&models.ImportRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedInvoice inserts an invoice with the given status and two items.
func seedInvoice(t *testing.T, db *gorm.DB, accessKey string, status models.DeliveryStatus) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		AccessKey:       accessKey,
		Number:          "12345",
		Series:          "1",
		CustomerName:    "Mercado Central Ltda",
		CustomerDoc:     "12345678000199",
		CustomerAddress: "Rua das Flores, 100 - Centro, São Paulo - SP",
		CustomerZip:     "01000000",
		Value:           1500.50,
		Status:          status,
		Items: []models.InvoiceItem{
			{Idx: 0, Code: "P001", Name: "Caixa de Arroz", Quantity: 10, Unit: "CX", Value: 500.50},
			{Idx: 1, Code: "P002", Name: "Fardo de Feijão", Quantity: 5, Unit: "FD", Value: 1000.00},
		},
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return inv
}

// seedDriver inserts a driver with the given name.
func seedDriver(t *testing.T, db *gorm.DB, name string) *models.Driver {
	t.Helper()
	d := &models.Driver{Name: name}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("failed to seed driver: %v", err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }
