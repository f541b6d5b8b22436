package database

import (
	"errors"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Internship{},
		&models.Application{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.AdminLog{},
		&models.CVForm{},
	)
}

// SeedData ensures a bootstrap admin account exists. Credentials come from
// INTERNHUB_ADMIN_EMAIL / INTERNHUB_ADMIN_PASSWORD; seeding is skipped when
// either is absent so production deployments can manage admins explicitly.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	email := strings.TrimSpace(os.Getenv("INTERNHUB_ADMIN_EMAIL"))
	password := os.Getenv("INTERNHUB_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.Profile{
		Email:    email,
		Password: string(hash),
		FullName: "Administrator",
		Role:     models.RoleAdmin,
		Status:   models.StatusApproved,
	}

	return db.Where(models.Profile{Email: email}).
		Attrs(admin).
		FirstOrCreate(&models.Profile{}).Error
}
