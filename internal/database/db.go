package database

import (
	"fmt"

	"evolution-gateway/internal/config"
	"evolution-gateway/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and runs the schema migration.
// The returned handle is passed explicitly to every store; there is no
// package-global connection.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. The unique indexes declared on the
// models are the correctness backbone for concurrent webhook handling, so a
// migration failure is fatal to startup.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Contact{},
		&models.Conversation{},
		&models.Message{},
		&models.AutomationRule{},
		&models.AutomationLog{},
		&models.InstanceConnectionState{},
	)
	if err != nil {
		return fmt.Errorf("run auto-migration: %w", err)
	}
	return nil
}
