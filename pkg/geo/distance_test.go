package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"TripGuard/internal/model"
)

// haversine 参考实现，用来对照 s2 的结果
func haversine(a, b model.Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func TestDistanceMeters(t *testing.T) {
	paris := model.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

	tests := []struct {
		name string
		to   model.Coordinates
		want float64
		tol  float64
	}{
		{name: "same point", to: paris, want: 0, tol: 1e-9},
		{name: "about 11m north", to: model.Coordinates{Latitude: 48.8567, Longitude: 2.3522}, want: 11.1, tol: 0.1},
		{name: "about 717m north-east", to: model.Coordinates{Latitude: 48.8605, Longitude: 2.3600}, want: 717, tol: 5},
		{name: "paris to london", to: model.Coordinates{Latitude: 51.5074, Longitude: -0.1278}, want: 343500, tol: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(paris, tt.to)
			assert.InDelta(t, tt.want, got, tt.tol)
			assert.InDelta(t, haversine(paris, tt.to), got, 1e-3)
		})
	}
}

func TestDistanceMetersIsSymmetric(t *testing.T) {
	a := model.Coordinates{Latitude: -33.8688, Longitude: 151.2093}
	b := model.Coordinates{Latitude: 35.6762, Longitude: 139.6503}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
}
