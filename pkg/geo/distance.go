package geo

import (
	"github.com/golang/geo/s2"

	"TripGuard/internal/model"
)

// EarthRadiusMeters 地球平均半径
const EarthRadiusMeters = 6371000.0

// DistanceMeters 两点之间的大圆距离（米）
// s2.LatLng.Distance 使用 haversine 公式计算夹角
func DistanceMeters(a, b model.Coordinates) float64 {
	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return from.Distance(to).Radians() * EarthRadiusMeters
}
