package database

import (
	"nursery-backend/internal/config"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = Open(postgres.Open(cfg.DatabaseDSN))
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Info("database connected, migrations applied")
}

// Open connects with driver errors translated, so unique violations surface
// as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// Migrate creates or updates every table. Order follows foreign keys.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Classroom{},
		&models.Staff{},
		&models.Student{},
		&models.User{},
		&models.Attendance{},
		&models.MedicalRecord{},
		&models.Invoice{},
		&models.Payment{},
		&models.InventoryItem{},
		&models.StudentDocument{},
		&models.PayrollContract{},
		&models.SalaryRecord{},
		&models.AuditLog{},
	)
}

// Close releases the pool behind DB.
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
