package database

import (
	"fmt"
	"time"

	"restaurant-backend/internal/config"
	"restaurant-backend/internal/models"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres, installs query tracing and sizes the pool.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Prepare(db, cfg.DBMaxOpenConns); err != nil {
		return nil, err
	}
	return db, nil
}

// Prepare is shared by Open and the sqlite-backed tests.
func Prepare(db *gorm.DB, maxOpenConns int) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return fmt.Errorf("install otelgorm plugin: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
