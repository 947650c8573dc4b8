package config

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/models"
)

// SeedAdminUser creates the first manager account from ADMIN_EMAIL /
// ADMIN_PASSWORD when the users table is empty. Skips silently when an
// account already exists.
func SeedAdminUser(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		log.Printf("Warning: could not check users table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Warning: could not hash admin password: %v", err)
		return
	}

	admin := models.User{
		Name:         "Gestor",
		Email:        email,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Warning: could not seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user %s", email)
}
