package database

import (
	"fmt"

	"github.com/gdg-garage/qr-checkin/internal/config"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the relational database selected by STORE_DRIVER. The mongo
// driver still uses sqlite here for staff accounts and API keys.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector := sqlite.Open(cfg.DatabasePath)
	if cfg.StoreDriver == config.StorePostgres {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db, cfg.StoreDriver != config.StoreMongo); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the operator tables and, when withRegistrations is set,
// the registration and check-in history tables.
func Migrate(db *gorm.DB, withRegistrations bool) error {
	tables := []interface{}{&models.Staff{}, &models.APIKey{}}
	if withRegistrations {
		tables = append(tables, &models.Registration{}, &models.CheckIn{})
	}
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// OpenCooldown opens the station-local scan cache database.
func OpenCooldown(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open cooldown cache: %w", err)
	}
	if err := db.AutoMigrate(&models.ScanEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cooldown cache: %w", err)
	}
	return db, nil
}

// OpenInMemory returns a fully migrated private sqlite database. It is pinned
// to one connection because every new ":memory:" connection is a new database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, true); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.ScanEntry{}); err != nil {
		return nil, err
	}
	return db, nil
}
