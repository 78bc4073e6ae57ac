package database

import (
	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/models"
)

// RunMigrations applies the schema for every persistent table.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Meal{},
		&models.DailyTotal{},
		&models.Episode{},
		&models.MedDose{},
		&models.FoodOverride{},
		&models.FactsConfig{},
		&models.Fact{},
		&models.AuditEvent{},
	)
}
