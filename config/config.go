package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dsn := os.Getenv("DB_DSN")
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := Migrations(DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	SeedAdminUser(DB)
}

// LockFailedInvoices reports whether FAILED invoices also lock logistics
// editing, symmetric with DELIVERED. Off by default: the current fleet
// workflow re-assigns failed deliveries to a second attempt.
func LockFailedInvoices() bool {
	return os.Getenv("LOCK_FAILED_INVOICES") == "true"
}
