package model

import "time"

// Coordinates 经纬度坐标（WGS84，单位：度）
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationSample 一次定位采样
type LocationSample struct {
	Coordinates
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// PlaceType 常用地点类别
type PlaceType string

const (
	PlaceTypeHome    PlaceType = "home"
	PlaceTypeWork    PlaceType = "work"
	PlaceTypeFriends PlaceType = "friends"
	PlaceTypeOther   PlaceType = "other"
)

// FavoriteAddress 用户收藏的地址，label 与 address 都是自由文本
type FavoriteAddress struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Address string `json:"address"`
	// RadiusMeters 为 0 时使用配置的全局半径
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}

// PreferredPlace 经过地理编码的常用地点（地理围栏）
// 每次解析重新生成，不做原地修改
type PreferredPlace struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Type         PlaceType `json:"type"`
	RadiusMeters float64   `json:"radius_meters,omitempty"`
}

// Center 返回地点中心坐标
func (p PreferredPlace) Center() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// GeocodeCacheEntry 地理编码缓存条目，按原始地址字符串索引
type GeocodeCacheEntry struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fresh 判断条目在 ttl 内是否仍可信
func (e GeocodeCacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	if e.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(e.UpdatedAt) <= ttl
}
