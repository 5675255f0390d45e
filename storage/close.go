package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"TripGuard/pkg/logger"
	"TripGuard/storage/database"
	"TripGuard/storage/mq"
	"TripGuard/storage/redis"
)

// Close 优雅关闭所有存储连接
// 关闭顺序：MQ -> 本地 KV -> Redis -> Database
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := mq.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close message queue", zap.Error(err))
	} else {
		logger.Logger.Info("Message queue closed successfully")
	}

	storeMu.Lock()
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Logger.Error("Failed to close local store", zap.Error(err))
		} else {
			logger.Logger.Info("Local store closed successfully")
		}
		store = nil
	}
	storeMu.Unlock()

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}

	if err := database.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close database connection", zap.Error(err))
	} else {
		logger.Logger.Info("Database connection closed successfully")
	}

	logger.Logger.Info("All storage connections closed")
}
