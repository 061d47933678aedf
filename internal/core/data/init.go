package data

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/hoo-game/hoo-server/internal/core"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector returns the gorm dialector for the configured database engine.
func Dialector(cfg *core.Config) (gorm.Dialector, error) {
	switch cfg.Database.Engine {
	case "sqlite", "":
		return sqlite.Open(cfg.Database.Filename), nil
	case "postgres":
		return postgres.Open(cfg.DatabaseURL()), nil
	}
	return nil, fmt.Errorf("unsupported database engine: %s", cfg.Database.Engine)
}

// Open connects to the database and migrates the schema.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	// By default only log errors but enable full SQL query prints-to-console with debug mode
	log := logger.Default.LogMode(logger.Error)
	if debug {
		log = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}, &Item{}, &SavedConfiguration{}); err != nil {
		return fmt.Errorf("error auto migrating db: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}
