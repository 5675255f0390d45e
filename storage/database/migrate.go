package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"TripGuard/internal/model"
	"TripGuard/pkg/logger"
)

// Migrate 创建行程会话相关表
func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.TripSessionRecord{},
		&model.TripSessionContact{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
