package runner

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/location"
	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
)

var (
	maison = model.PreferredPlace{ID: "home", Label: "Maison", Latitude: 48.8566, Longitude: 2.3522, Type: model.PlaceTypeHome, RadiusMeters: 150}
	inside = model.LocationSample{Coordinates: model.Coordinates{Latitude: 48.8567, Longitude: 2.3522}}
	away   = model.LocationSample{Coordinates: model.Coordinates{Latitude: 48.8605, Longitude: 2.3600}}
)

type fakeWatcher struct {
	handler location.Handler
	stops   int
}

func (w *fakeWatcher) Watch(_ context.Context, _ location.WatchOptions, h location.Handler) func() {
	w.handler = h
	return func() { w.stops++ }
}

type fakeConfig struct {
	cfg       model.ForgottenTripConfig
	favorites []model.FavoriteAddress
	loads     int
	err       error
}

func (c *fakeConfig) GetForgottenTripConfig(context.Context) (model.ForgottenTripConfig, error) {
	c.loads++
	return c.cfg, c.err
}

func (c *fakeConfig) GetFavorites(context.Context) ([]model.FavoriteAddress, error) {
	return c.favorites, nil
}

type fakeResolver struct {
	places []model.PreferredPlace
	calls  int
}

func (r *fakeResolver) Resolve(context.Context, []model.FavoriteAddress, model.ForgottenTripConfig) []model.PreferredPlace {
	r.calls++
	return r.places
}

type fakeSessions struct {
	active bool
	err    error
}

func (s *fakeSessions) HasActiveSession(context.Context) (bool, error) {
	return s.active, s.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.LocalNotification
	fn   func()
}

func (n *fakeNotifier) Notify(_ context.Context, notification model.LocalNotification) error {
	if n.fn != nil {
		n.fn()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type fakePermissions struct {
	location, notifications bool
	notificationRequests    int
}

func (p *fakePermissions) RequestLocation(context.Context) (bool, error) { return p.location, nil }
func (p *fakePermissions) RequestNotifications(context.Context) (bool, error) {
	p.notificationRequests++
	return p.notifications, nil
}

type harness struct {
	runner    *Runner
	watcher   *fakeWatcher
	config    *fakeConfig
	resolver  *fakeResolver
	sessions  *fakeSessions
	notifier  *fakeNotifier
	perms     *fakePermissions
	infos     []string
	now       time.Time
	sandboxed bool
}

func newHarness(t *testing.T, mutate func(h *harness)) *harness {
	t.Helper()
	h := &harness{
		watcher:  &fakeWatcher{},
		config:   &fakeConfig{cfg: model.DefaultForgottenTripConfig(), favorites: []model.FavoriteAddress{{ID: "home", Label: "Maison", Address: "x"}}},
		resolver: &fakeResolver{places: []model.PreferredPlace{maison}},
		sessions: &fakeSessions{},
		notifier: &fakeNotifier{},
		perms:    &fakePermissions{location: true, notifications: true},
		now:      time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(h)
	}
	h.runner = New(Options{
		Watcher:      h.watcher,
		Permissions:  h.perms,
		Capabilities: StaticCapabilities{Sandboxed: h.sandboxed},
		Config:       h.config,
		Sessions:     h.sessions,
		Resolver:     h.resolver,
		Notifier:     h.notifier,
		OnInfo:       func(msg string) { h.infos = append(h.infos, msg) },
		Clock:        func() time.Time { return h.now },
	})
	return h
}

func (h *harness) sample(s model.LocationSample) {
	h.watcher.handler(context.Background(), s)
}

func TestRunner_PermissionDeniedIsInert(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.perms.location = false })

	stop := h.runner.Start(context.Background())
	require.NotNil(t, stop)
	stop()

	assert.Nil(t, h.watcher.handler)
	assert.Zero(t, h.config.loads)
	assert.Len(t, h.infos, 1)
}

func TestRunner_NotifiesOnDeparture(t *testing.T) {
	h := newHarness(t, nil)
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	id, ok := h.runner.State().InsidePlace()
	require.True(t, ok)
	assert.Equal(t, "home", id)

	h.now = h.now.Add(2 * time.Minute)
	h.sample(away)

	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, NotificationTitle, n.Title)
	assert.Contains(t, n.Body, "Maison")
	assert.Equal(t, "home", n.PlaceID)
	assert.Equal(t, 1, h.perms.notificationRequests)
}

func TestRunner_ActiveSessionSuppressesAlert(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.sessions.active = true })
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	h.sample(away)
	assert.Empty(t, h.notifier.sent)
	assert.Zero(t, h.perms.notificationRequests)
}

func TestRunner_RefreshIsRateLimited(t *testing.T) {
	h := newHarness(t, nil)
	stop := h.runner.Start(context.Background())
	defer stop()
	assert.Equal(t, 1, h.config.loads, "forced refresh at start")

	h.sample(inside)
	h.now = h.now.Add(time.Minute)
	h.sample(inside)
	assert.Equal(t, 1, h.config.loads)

	h.now = h.now.Add(2 * time.Minute)
	h.sample(inside)
	assert.Equal(t, 2, h.config.loads)

	h.runner.Invalidate()
	h.sample(inside)
	assert.Equal(t, 3, h.config.loads)
}

func TestRunner_DisabledOrNoPlacesSkips(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, func(h *harness) { h.config.cfg.Enabled = false })
		stop := h.runner.Start(context.Background())
		defer stop()

		h.sample(inside)
		h.sample(away)
		assert.Empty(t, h.notifier.sent)
		assert.Zero(t, h.resolver.calls)
		_, in := h.runner.State().InsidePlace()
		assert.False(t, in)
	})

	t.Run("no places", func(t *testing.T) {
		h := newHarness(t, func(h *harness) { h.resolver.places = nil })
		stop := h.runner.Start(context.Background())
		defer stop()

		h.sample(inside)
		_, in := h.runner.State().InsidePlace()
		assert.False(t, in)
	})
}

func TestRunner_SandboxSkipsNotificationSilently(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.sandboxed = true })
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	h.sample(away)
	assert.Empty(t, h.notifier.sent)
	assert.Zero(t, h.perms.notificationRequests)
	assert.Empty(t, h.infos)
}

func TestRunner_NotificationPermissionDenied(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.perms.notifications = false })
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	h.sample(away)
	assert.Empty(t, h.notifier.sent)
	assert.Len(t, h.infos, 1)
}

func TestRunner_FailuresDoNotStopLoop(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.sessions.err = stderrors.New("storage offline") })
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	require.Len(t, h.infos, 1)

	h.sessions.err = nil
	h.sample(inside)
	_, in := h.runner.State().InsidePlace()
	assert.True(t, in)
}

func TestRunner_PanicIsRecovered(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.fn = func() { panic("scheduler crashed") }
	stop := h.runner.Start(context.Background())
	defer stop()

	h.sample(inside)
	assert.NotPanics(t, func() { h.sample(away) })
	assert.Len(t, h.infos, 1)
}

func TestRunner_StartOnlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	stop := h.runner.Start(context.Background())
	second := h.runner.Start(context.Background())
	second()
	assert.Zero(t, h.watcher.stops)

	stop()
	stop()
	assert.Equal(t, 1, h.watcher.stops)
}

func TestRunner_StartAfterDeniedPermission(t *testing.T) {
	h := newHarness(t, func(h *harness) { h.perms.location = false })
	h.runner.Start(context.Background())
	require.Nil(t, h.watcher.handler)

	h.perms.location = true
	stop, err := h.runner.StartBackgroundTracking(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h.watcher.handler, "granting permission later must start watching")

	again := h.runner.Start(context.Background())
	again()
	assert.Zero(t, h.watcher.stops)

	stop()
	assert.Equal(t, 1, h.watcher.stops)
}

func TestRunner_StartBackgroundTracking(t *testing.T) {
	t.Run("sandboxed", func(t *testing.T) {
		h := newHarness(t, func(h *harness) { h.sandboxed = true })
		stop, err := h.runner.StartBackgroundTracking(context.Background())
		assert.Nil(t, stop)
		assert.ErrorIs(t, err, errors.BackgroundLocationUnsupported)
	})

	t.Run("permission denied", func(t *testing.T) {
		h := newHarness(t, func(h *harness) { h.perms.location = false })
		_, err := h.runner.StartBackgroundTracking(context.Background())
		assert.ErrorIs(t, err, errors.LocationPermissionDenied)
	})

	t.Run("supported", func(t *testing.T) {
		h := newHarness(t, nil)
		stop, err := h.runner.StartBackgroundTracking(context.Background())
		require.NoError(t, err)
		require.NotNil(t, stop)
		stop()
		assert.Equal(t, 1, h.watcher.stops)
	})
}

func TestRunner_WithFeed(t *testing.T) {
	feed := location.NewFeed(nil)
	notified := make(chan model.LocalNotification, 1)
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	r := New(Options{
		Watcher:     feed,
		Permissions: StaticPermissions{Location: true, Notifications: true},
		Config:      &fakeConfig{cfg: model.DefaultForgottenTripConfig()},
		Sessions:    &fakeSessions{},
		Resolver:    &fakeResolver{places: []model.PreferredPlace{maison}},
		Notifier:    notifierFunc(func(n model.LocalNotification) { notified <- n }),
		Clock:       func() time.Time { return now },
	})
	stop := r.Start(context.Background())
	defer stop()

	in := inside
	in.RecordedAt = now
	out := away
	out.RecordedAt = now.Add(time.Minute)
	feed.Push(in)
	feed.Push(out)

	select {
	case n := <-notified:
		assert.Equal(t, "Maison", n.PlaceLabel)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}
}

type notifierFunc func(model.LocalNotification)

func (f notifierFunc) Notify(_ context.Context, n model.LocalNotification) error {
	f(n)
	return nil
}
