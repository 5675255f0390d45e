package model

import "math"

// 遗忘行程配置的下限，加载与保存时都会被夹紧
const (
	MinPlaceRadiusMeters       = 40
	MinDepartureDistanceMeters = 80
	MinCooldownMinutes         = 1

	DefaultPlaceRadiusMeters       = 150
	DefaultDepartureDistanceMeters = 300
	DefaultCooldownMinutes         = 30
)

// ForgottenTripConfig 用户的遗忘行程检测配置（本地持久化）
type ForgottenTripConfig struct {
	Enabled                 bool     `json:"enabled"`
	SelectedFavoriteIDs     []string `json:"selected_favorite_ids"`
	PlaceRadiusMeters       float64  `json:"place_radius_meters"`
	DepartureDistanceMeters float64  `json:"departure_distance_meters"`
	CooldownMinutes         int      `json:"cooldown_minutes"`
}

// DefaultForgottenTripConfig 默认配置，存储损坏或缺失时使用
func DefaultForgottenTripConfig() ForgottenTripConfig {
	return ForgottenTripConfig{
		Enabled:                 true,
		SelectedFavoriteIDs:     []string{},
		PlaceRadiusMeters:       DefaultPlaceRadiusMeters,
		DepartureDistanceMeters: DefaultDepartureDistanceMeters,
		CooldownMinutes:         DefaultCooldownMinutes,
	}
}

// Clamped 返回数值字段被夹紧到下限之后的副本，非有限值回退为默认值
func (c ForgottenTripConfig) Clamped() ForgottenTripConfig {
	out := c
	out.PlaceRadiusMeters = clampFloat(c.PlaceRadiusMeters, MinPlaceRadiusMeters, DefaultPlaceRadiusMeters)
	out.DepartureDistanceMeters = clampFloat(c.DepartureDistanceMeters, MinDepartureDistanceMeters, DefaultDepartureDistanceMeters)
	if out.CooldownMinutes < MinCooldownMinutes {
		out.CooldownMinutes = MinCooldownMinutes
	}

	seen := make(map[string]struct{}, len(c.SelectedFavoriteIDs))
	ids := make([]string, 0, len(c.SelectedFavoriteIDs))
	for _, id := range c.SelectedFavoriteIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	out.SelectedFavoriteIDs = ids

	return out
}

// SelectedSet 返回用户显式选择的收藏地址集合
func (c ForgottenTripConfig) SelectedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.SelectedFavoriteIDs))
	for _, id := range c.SelectedFavoriteIDs {
		set[id] = struct{}{}
	}
	return set
}

func clampFloat(v, floor, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	if v < floor {
		return floor
	}
	return v
}
