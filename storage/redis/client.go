package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"TripGuard/config"
)

var (
	client *redis.Client
	once   sync.Once
	err    error
)

// Init 仅在 STORAGE_BACKEND=redis 时调用
func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		client = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MinIdleConns: 2,
			MaxRetries:   3,
		})
		if cfg.OTelEnabled {
			client.AddHook(newTracingHook(cfg.RedisDB))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = client.Ping(ctx).Err()
	})

	return err
}

func Client() *redis.Client {
	if client == nil {
		panic("Redis client not init")
	}
	return client
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}

	return client.Close()
}

// Prefix 返回配置的键前缀
func Prefix() string {
	prefix := config.Cfg.RedisPrefix
	if prefix == "" {
		prefix = "tg"
	}
	return prefix
}

func Key(parts ...string) string {
	var sb strings.Builder
	sb.WriteString(Prefix())
	for _, part := range parts {
		if part != "" {
			sb.WriteString(":")
			sb.WriteString(part)
		}
	}

	return sb.String()
}
