package storage

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"TripGuard/config"
	"TripGuard/pkg/logger"
	"TripGuard/storage/database"
	"TripGuard/storage/kv"
	"TripGuard/storage/mq"
	"TripGuard/storage/redis"
)

var (
	store   kv.Store
	storeMu sync.RWMutex
)

// Init 统一初始化存储层
// 本地 KV 必须可用，数据库与 MQ 按配置开启
func Init() error {
	s, err := openKV()
	if err != nil {
		return err
	}
	storeMu.Lock()
	store = s
	storeMu.Unlock()

	if config.Cfg.PostgreSQLEnabled {
		if err := database.Init(); err != nil {
			return err
		}
	}

	if config.Cfg.RabbitMQEnabled {
		if err := mq.Init(); err != nil {
			return err
		}
	}

	return nil
}

func openKV() (kv.Store, error) {
	cfg := config.Cfg

	switch cfg.StorageBackend {
	case "redis":
		if err := redis.Init(); err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		logger.Logger.Info("Local store initialized", zap.String("backend", "redis"))
		return kv.NewRedisStore(redis.Client(), redis.Prefix()), nil
	default:
		badgerCfg := kv.DefaultBadgerConfig(cfg.BadgerPath)
		badgerCfg.InMemory = cfg.BadgerInMemory
		badgerCfg.Logger = logger.For("badger")

		s, err := kv.OpenBadger(badgerCfg)
		if err != nil {
			return nil, err
		}
		logger.Logger.Info("Local store initialized",
			zap.String("backend", "badger"),
			zap.String("path", cfg.BadgerPath),
			zap.Bool("in_memory", cfg.BadgerInMemory),
		)
		return s, nil
	}
}

// KV 返回本地键值存储，Init 之前调用会 panic
func KV() kv.Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	if store == nil {
		panic("local store not init")
	}
	return store
}
