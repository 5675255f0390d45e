package places

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/cache"
	"TripGuard/internal/model"
	"TripGuard/pkg/metrics"
)

// ErrNoMatch 地理编码服务没有找到该地址
var ErrNoMatch = errors.New("geocoder: no match")

// Geocoder 地理编码服务，找不到结果时返回 (nil, nil)
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (*model.Coordinates, error)
}

// Resolver 把收藏地址解析成带坐标的常用地点
type Resolver struct {
	geocoder Geocoder
	cache    *cache.GeocodeCache
	breaker  *cache.CircuitBreaker
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Recorder
}

type ResolverOption func(*Resolver)

// WithBreaker 为地理编码调用加上熔断保护
func WithBreaker(b *cache.CircuitBreaker) ResolverOption {
	return func(r *Resolver) { r.breaker = b }
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(log *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

func WithMetrics(m *metrics.Recorder) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(geocoder Geocoder, geocodeCache *cache.GeocodeCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		geocoder: geocoder,
		cache:    geocodeCache,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select 根据配置挑选参与检测的收藏地址
// 显式选择非空时只用选择集，否则取推断为 home/work/friends 的地址
func Select(favorites []model.FavoriteAddress, cfg model.ForgottenTripConfig) []model.FavoriteAddress {
	selected := make([]model.FavoriteAddress, 0, len(favorites))
	if len(cfg.SelectedFavoriteIDs) > 0 {
		set := cfg.SelectedSet()
		for _, f := range favorites {
			if _, ok := set[f.ID]; ok {
				selected = append(selected, f)
			}
		}
		return selected
	}

	for _, f := range favorites {
		if DefaultSelectable(InferPreferredPlaceType(f.Label)) {
			selected = append(selected, f)
		}
	}
	return selected
}

// Resolve 解析常用地点，编码失败的地址直接丢弃，不返回错误
func (r *Resolver) Resolve(ctx context.Context, favorites []model.FavoriteAddress, cfg model.ForgottenTripConfig) []model.PreferredPlace {
	selected := Select(favorites, cfg)
	result := make([]model.PreferredPlace, 0, len(selected))
	now := r.now()

	for _, fav := range selected {
		address := fav.Address
		if strings.TrimSpace(address) == "" {
			r.log.Debug("Skipping favorite without address", zap.String("favorite_id", fav.ID))
			continue
		}

		coords, ok := r.cache.Lookup(ctx, address, now)
		if !ok {
			fresh, err := r.geocode(ctx, address)
			if err != nil {
				r.log.Info("Dropping favorite that failed to geocode",
					zap.String("favorite_id", fav.ID),
					zap.Error(err),
				)
				r.metrics.RecordGeocodeFailure(ctx)
				continue
			}
			coords = fresh
			r.cache.Put(ctx, address, coords, now)
		}

		place := model.PreferredPlace{
			ID:           fav.ID,
			Label:        fav.Label,
			Address:      address,
			Latitude:     coords.Latitude,
			Longitude:    coords.Longitude,
			Type:         InferPreferredPlaceType(fav.Label),
			RadiusMeters: cfg.PlaceRadiusMeters,
		}
		if fav.RadiusMeters > 0 {
			place.RadiusMeters = fav.RadiusMeters
		}
		result = append(result, place)
	}

	if err := r.cache.Flush(ctx); err != nil {
		r.log.Warn("Failed to persist geocode cache", zap.Error(err))
	}

	return result
}

func (r *Resolver) geocode(ctx context.Context, address string) (model.Coordinates, error) {
	var coords *model.Coordinates
	call := func(ctx context.Context) error {
		var err error
		coords, err = r.geocoder.GeocodeAddress(ctx, address)
		return err
	}

	var err error
	if r.breaker != nil {
		err = r.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return model.Coordinates{}, err
	}
	if coords == nil {
		return model.Coordinates{}, ErrNoMatch
	}
	return *coords, nil
}
