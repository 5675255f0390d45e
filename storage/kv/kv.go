package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt 存储中的 JSON 无法解析，调用方应回退到默认值
var ErrCorrupt = errors.New("kv: corrupt value")

// Store 本地持久化键值存储，没有事务，多键更新不保证原子性
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Key 组装存储键，例如 Key("forgotten_trip", "config") => "forgotten_trip:config"
func Key(parts ...string) string {
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(":")
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// GetJSON 读取并反序列化，键不存在返回 false
// 值损坏时返回 ErrCorrupt，调用方据此回退默认值
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: key %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON 序列化后写入
func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
