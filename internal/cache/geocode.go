package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/storage/kv"
)

// GeocodeTTL 地理编码缓存有效期
const GeocodeTTL = 30 * 24 * time.Hour

var geocodeCacheKey = kv.Key("forgotten_trip", "geocode_cache")

// GeocodeCache 按原始地址字符串缓存坐标，整体作为一个 JSON 对象持久化
type GeocodeCache struct {
	store kv.Store
	ttl   time.Duration
	log   *zap.Logger

	mu      sync.Mutex
	entries map[string]model.GeocodeCacheEntry
	loaded  bool
	dirty   bool
}

func NewGeocodeCache(store kv.Store, log *zap.Logger) *GeocodeCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &GeocodeCache{
		store: store,
		ttl:   GeocodeTTL,
		log:   log,
	}
}

// load 读取持久化内容，损坏时按空缓存处理；其他读取错误保持未加载，下次调用重试
// 加载前 Put 的条目会覆盖读到的旧条目
func (c *GeocodeCache) load(ctx context.Context) bool {
	if c.entries == nil {
		c.entries = make(map[string]model.GeocodeCacheEntry)
	}
	if c.loaded {
		return true
	}
	stored := make(map[string]model.GeocodeCacheEntry)
	if _, err := kv.GetJSON(ctx, c.store, geocodeCacheKey, &stored); err != nil {
		if !errors.Is(err, kv.ErrCorrupt) {
			c.log.Warn("Failed to load geocode cache, will retry", zap.Error(err))
			return false
		}
		c.log.Warn("Geocode cache is corrupt, starting empty", zap.Error(err))
		stored = make(map[string]model.GeocodeCacheEntry)
	}
	if stored == nil {
		stored = make(map[string]model.GeocodeCacheEntry)
	}
	for address, entry := range c.entries {
		stored[address] = entry
	}
	c.entries = stored
	c.loaded = true
	return true
}

// Lookup 返回 now 时刻仍然有效的缓存坐标
func (c *GeocodeCache) Lookup(ctx context.Context, address string, now time.Time) (model.Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	entry, ok := c.entries[address]
	if !ok || !entry.Fresh(now, c.ttl) {
		return model.Coordinates{}, false
	}
	return model.Coordinates{Latitude: entry.Latitude, Longitude: entry.Longitude}, true
}

// Put 记录新的编码结果，调用 Flush 之前只保存在内存
func (c *GeocodeCache) Put(ctx context.Context, address string, coords model.Coordinates, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.load(ctx)

	c.entries[address] = model.GeocodeCacheEntry{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		UpdatedAt: now,
	}
	c.dirty = true
}

// Flush 只有产生新条目时才写回存储；持久化内容尚未成功加载时跳过写入，避免覆盖旧条目
func (c *GeocodeCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	if !c.load(ctx) {
		c.log.Warn("Geocode cache not loaded, skipping flush", zap.Int("pending", len(c.entries)))
		return nil
	}
	if err := kv.SetJSON(ctx, c.store, geocodeCacheKey, c.entries); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Len 当前内存中的条目数（含过期）
func (c *GeocodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
