package database

import (
	"fmt"
	"strings"
	"time"

	"branch-pos/internal/auth"
	"branch-pos/internal/config"
	"branch-pos/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Dialector picks the gorm driver for the configured backend.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Connect opens the database, retrying while it comes up.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         logger.Default.LogMode(gormLogLevel(cfg.DBLogLevel)),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warn("failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", connectAttempts),
			zap.Error(err),
		)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s after %d attempts: %w", cfg.DBDriver, connectAttempts, err)
	}

	log.Info("connected to database", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// Migrate syncs the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// SeedOwner creates the first owner account when the users table is empty.
func SeedOwner(db *gorm.DB, email, password string, log *zap.Logger) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug("users already exist, skipping owner seed")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	owner := models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		FirstName:    "Owner",
		Role:         models.RoleOwner,
		IsActive:     true,
	}
	if err := db.Create(&owner).Error; err != nil {
		return fmt.Errorf("seeding owner: %w", err)
	}
	log.Info("seeded owner account", zap.String("email", owner.Email))
	return nil
}
