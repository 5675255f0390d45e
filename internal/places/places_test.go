package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/cache"
	"TripGuard/internal/model"
	"TripGuard/storage/kv"
)

type fakeGeocoder struct {
	results map[string]*model.Coordinates
	errs    map[string]error
	calls   map[string]int
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		results: map[string]*model.Coordinates{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (g *fakeGeocoder) GeocodeAddress(_ context.Context, address string) (*model.Coordinates, error) {
	g.calls[address]++
	if err := g.errs[address]; err != nil {
		return nil, err
	}
	return g.results[address], nil
}

func newResolver(t *testing.T, g Geocoder, now *time.Time, opts ...ResolverOption) (*Resolver, kv.Store) {
	t.Helper()
	store, err := kv.OpenBadger(kv.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts = append(opts, WithClock(func() time.Time { return *now }))
	return NewResolver(g, cache.NewGeocodeCache(store, nil), opts...), store
}

func TestInferPreferredPlaceType(t *testing.T) {
	tests := []struct {
		label string
		want  model.PlaceType
	}{
		{"Maison principale", model.PlaceTypeHome},
		{"Bureau centre", model.PlaceTypeWork},
		{"Chez amis", model.PlaceTypeFriends},
		{"Supermarche", model.PlaceTypeOther},
		{"CHEZ MOI", model.PlaceTypeHome},
		{"Home office", model.PlaceTypeHome},
		{"Famille Dupont", model.PlaceTypeFriends},
		{"", model.PlaceTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPreferredPlaceType(tt.label))
		})
	}
}

func TestSelect(t *testing.T) {
	favorites := []model.FavoriteAddress{
		{ID: "1", Label: "Maison", Address: "a"},
		{ID: "2", Label: "Supermarche", Address: "b"},
		{ID: "3", Label: "Bureau", Address: "c"},
	}

	t.Run("default excludes other", func(t *testing.T) {
		got := Select(favorites, model.DefaultForgottenTripConfig())
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
	})

	t.Run("explicit selection wins", func(t *testing.T) {
		cfg := model.DefaultForgottenTripConfig()
		cfg.SelectedFavoriteIDs = []string{"2"}
		got := Select(favorites, cfg)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})
}

func TestResolve_UsesCacheAndDropsFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	g := newFakeGeocoder()
	g.results["12 rue A"] = &model.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	g.errs["3 av B"] = errors.New("timeout")
	// "9 bd C" 没有结果

	r, _ := newResolver(t, g, &now)
	favorites := []model.FavoriteAddress{
		{ID: "home", Label: "Maison", Address: "12 rue A"},
		{ID: "work", Label: "Bureau", Address: "3 av B"},
		{ID: "friends", Label: "Amis", Address: "9 bd C", RadiusMeters: 80},
	}
	cfg := model.DefaultForgottenTripConfig()

	places := r.Resolve(ctx, favorites, cfg)
	require.Len(t, places, 1)
	assert.Equal(t, "home", places[0].ID)
	assert.Equal(t, model.PlaceTypeHome, places[0].Type)
	assert.Equal(t, cfg.PlaceRadiusMeters, places[0].RadiusMeters)

	places = r.Resolve(ctx, favorites, cfg)
	require.Len(t, places, 1)
	assert.Equal(t, 1, g.calls["12 rue A"], "fresh cache entry reused")
	assert.Equal(t, 2, g.calls["3 av B"], "failures are not cached")

	now = now.Add(cache.GeocodeTTL + time.Hour)
	_ = r.Resolve(ctx, favorites, cfg)
	assert.Equal(t, 2, g.calls["12 rue A"], "stale entry triggers re-geocoding")
}

func TestResolve_RadiusOverride(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := newFakeGeocoder()
	g.results["x"] = &model.Coordinates{Latitude: 1, Longitude: 1}

	r, _ := newResolver(t, g, &now)
	places := r.Resolve(context.Background(), []model.FavoriteAddress{
		{ID: "a", Label: "Maison", Address: "x", RadiusMeters: 60},
	}, model.DefaultForgottenTripConfig())
	require.Len(t, places, 1)
	assert.Equal(t, 60.0, places[0].RadiusMeters)
}

func TestResolve_CachePersistedAcrossResolvers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := newFakeGeocoder()
	g.results["x"] = &model.Coordinates{Latitude: 1, Longitude: 1}

	r, store := newResolver(t, g, &now)
	favorites := []model.FavoriteAddress{{ID: "a", Label: "Maison", Address: "x"}}
	_ = r.Resolve(ctx, favorites, model.DefaultForgottenTripConfig())

	second := NewResolver(g, cache.NewGeocodeCache(store, nil), WithClock(func() time.Time { return now }))
	places := second.Resolve(ctx, favorites, model.DefaultForgottenTripConfig())
	require.Len(t, places, 1)
	assert.Equal(t, 1, g.calls["x"])
}

func TestResolve_OpenBreakerDropsPlace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	g := newFakeGeocoder()
	g.errs["x"] = errors.New("503")
	g.results["y"] = &model.Coordinates{Latitude: 2, Longitude: 2}

	breaker := cache.NewCircuitBreaker("geocoder", 1, time.Hour, nil).WithClock(func() time.Time { return now })
	r, _ := newResolver(t, g, &now, WithBreaker(breaker))

	places := r.Resolve(ctx, []model.FavoriteAddress{
		{ID: "a", Label: "Maison", Address: "x"},
		{ID: "b", Label: "Bureau", Address: "y"},
	}, model.DefaultForgottenTripConfig())

	assert.Empty(t, places)
	assert.Equal(t, 0, g.calls["y"], "breaker opened after the first failure")
}
