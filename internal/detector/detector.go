package detector

import (
	"math"
	"time"

	"TripGuard/internal/model"
	"TripGuard/pkg/geo"
)

const (
	// MinEffectiveRadiusMeters 任何地点的有效半径下限
	MinEffectiveRadiusMeters = 30

	// departureHysteresis 离开判定需超过进入半径的倍数
	departureHysteresis = 1.2

	// FallbackPlaceLabel 原地点已不可解析时使用的名称
	FallbackPlaceLabel = "un lieu favori"
)

// Input 一次检测的输入
type Input struct {
	Coords           model.Coordinates
	Places           []model.PreferredPlace
	Config           model.ForgottenTripConfig
	State            State
	HasActiveSession bool
	Now              time.Time
}

// Decision 检测结果
type Decision struct {
	NextState    State
	ShouldNotify bool
	// PlaceLabel 仅在 ShouldNotify 为 true 时有值
	PlaceLabel string
	// Place 触发提醒的地点，原地点不可解析时为 nil
	Place *model.PreferredPlace
}

func placeRadius(place model.PreferredPlace, cfg model.ForgottenTripConfig) float64 {
	if place.RadiusMeters > 0 {
		return place.RadiusMeters
	}
	return cfg.PlaceRadiusMeters
}

// EffectiveRadius 地点的有效半径，不小于 30 米
func EffectiveRadius(place model.PreferredPlace, cfg model.ForgottenTripConfig) float64 {
	return math.Max(MinEffectiveRadiusMeters, placeRadius(place, cfg))
}

// FindCurrentPlace 返回包含 coords 的地点，多个重叠时取中心最近的一个
// 恰好在半径边界上视为在内
func FindCurrentPlace(coords model.Coordinates, places []model.PreferredPlace, cfg model.ForgottenTripConfig) (model.PreferredPlace, bool) {
	var (
		best     model.PreferredPlace
		bestDist = math.Inf(1)
		found    bool
	)
	for _, p := range places {
		d := geo.DistanceMeters(coords, p.Center())
		if d > EffectiveRadius(p, cfg) {
			continue
		}
		if d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	return best, found
}

// MinDepartureDistance 确认离开所需的最小距离
func MinDepartureDistance(place model.PreferredPlace, cfg model.ForgottenTripConfig) float64 {
	return math.Max(cfg.DepartureDistanceMeters, math.Round(placeRadius(place, cfg)*departureHysteresis))
}

func findByID(places []model.PreferredPlace, id string) (model.PreferredPlace, bool) {
	for _, p := range places {
		if p.ID == id {
			return p, true
		}
	}
	return model.PreferredPlace{}, false
}

// DetectForgottenTrip 纯函数：根据当前位置与上一状态判断是否离开了常用地点却没有开启行程
func DetectForgottenTrip(in Input) Decision {
	current, inPlace := FindCurrentPlace(in.Coords, in.Places, in.Config)

	if in.HasActiveSession {
		next := in.State.moveTo("")
		if inPlace {
			next = in.State.moveTo(current.ID)
		}
		return Decision{NextState: next}
	}

	if inPlace {
		return Decision{NextState: in.State.moveTo(current.ID)}
	}

	previousID, wasInside := in.State.InsidePlace()
	if !wasInside {
		return Decision{NextState: in.State}
	}

	previous, resolvable := findByID(in.Places, previousID)
	hasLeftEnough := !resolvable ||
		geo.DistanceMeters(in.Coords, previous.Center()) >= MinDepartureDistance(previous, in.Config)

	cooldownPassed := true
	if last, ok := in.State.LastAlert(); ok {
		cooldown := time.Duration(in.Config.CooldownMinutes) * time.Minute
		cooldownPassed = in.Now.Sub(last) >= cooldown
	}

	if !hasLeftEnough || !cooldownPassed {
		return Decision{NextState: in.State.moveTo("")}
	}

	d := Decision{
		NextState:    Outside().WithLastAlert(in.Now),
		ShouldNotify: true,
		PlaceLabel:   FallbackPlaceLabel,
	}
	if resolvable {
		d.PlaceLabel = previous.Label
		d.Place = &previous
	}
	return d
}
