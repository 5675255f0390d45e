package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"TripGuard/config"
	"TripGuard/internal/backend"
	"TripGuard/internal/cache"
	"TripGuard/internal/handler"
	"TripGuard/internal/location"
	"TripGuard/internal/notify"
	"TripGuard/internal/places"
	"TripGuard/internal/queue"
	"TripGuard/internal/runner"
	"TripGuard/internal/schedule"
	"TripGuard/internal/service"
	"TripGuard/internal/settings"
	"TripGuard/pkg/geocoder"
	"TripGuard/pkg/logger"
	"TripGuard/pkg/metrics"
	"TripGuard/pkg/netprobe"
	"TripGuard/storage"
	"TripGuard/storage/database"
	"TripGuard/storage/mq"
)

type app struct {
	runner    *runner.Runner
	scheduler *schedule.SyncScheduler
	handler   *handler.Handler
}

// remote 远端会话与守护人信号，按配置退化为不可用/仅日志
type remote struct {
	creator  queue.TripCreator
	ender    service.SessionEnder
	signaler queue.GuardianSignaler
	notifier runner.Notifier
}

func buildRemote() remote {
	var r remote

	var recorder backend.SignalRecorder
	if config.Cfg.PostgreSQLEnabled {
		repo := backend.NewSessionRepository(database.DB(), logger.For("sessions"))
		r.creator, r.ender, recorder = repo, repo, repo
	} else {
		r.creator, r.ender = backend.UnavailableCreator{}, backend.UnavailableCreator{}
	}

	if config.Cfg.RabbitMQEnabled {
		r.signaler = backend.NewGuardianPublisher(mq.Publisher{}, recorder, logger.For("guardian"))
		r.notifier = notify.NewMQNotifier(mq.Publisher{}, logger.For("notify"))
	} else {
		r.signaler = backend.LogSignaler{Log: logger.For("guardian")}
		r.notifier = notify.NewLogNotifier(logger.For("notify"))
	}
	return r
}

func buildApp() (*app, error) {
	cfg := config.Cfg
	store := storage.KV()
	rec := metrics.GetMetrics()

	settingsStore := settings.NewStore(store, logger.For("settings"))

	nominatim, err := geocoder.NewNominatim(geocoder.Config{
		BaseURL:           cfg.GeocoderBaseURL,
		UserAgent:         cfg.GeocoderUserAgent,
		RequestsPerSecond: cfg.GeocoderRPS,
		Timeout:           time.Duration(cfg.GeocoderTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init geocoder: %w", err)
	}
	resolver := places.NewResolver(nominatim, cache.NewGeocodeCache(store, logger.For("geocode-cache")),
		places.WithBreaker(cache.NewCircuitBreaker("geocoder", 5, time.Minute, logger.For("breaker"))),
		places.WithLogger(logger.For("places")),
		places.WithMetrics(rec),
	)

	probe, err := netprobe.New(netprobe.Config{
		URL:     cfg.ProbeURL,
		Timeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
	}, logger.For("netprobe"))
	if err != nil {
		return nil, fmt.Errorf("init network probe: %w", err)
	}

	rm := buildRemote()
	feed := location.NewFeed(logger.For("location"))

	run := runner.New(runner.Options{
		Watcher:      feed,
		Permissions:  runner.StaticPermissions{Location: cfg.LocationPermission, Notifications: cfg.NotificationPermission},
		Capabilities: runner.StaticCapabilities{Sandboxed: cfg.SandboxRuntime},
		Config:       settingsStore,
		Sessions:     settingsStore,
		Resolver:     resolver,
		Notifier:     rm.notifier,
		WatchOptions: location.WatchOptions{
			Interval:       cfg.LocationInterval(),
			DistanceMeters: float64(cfg.LocationDistanceMeters),
		},
		RefreshWindow: cfg.PlacesRefreshWindow(),
		Logger:        logger.For("runner"),
		Metrics:       rec,
	})

	launchQueue := queue.NewLaunchQueue(queue.Options{
		Store:    store,
		Sessions: settingsStore,
		Creator:  rm.creator,
		Signaler: rm.signaler,
		Probe:    probe,
		Logger:   logger.For("launch-queue"),
		Metrics:  rec,
	})

	trips := service.NewTripService(service.TripServiceOptions{
		Probe:    probe,
		Creator:  rm.creator,
		Ender:    rm.ender,
		Signaler: rm.signaler,
		Queue:    launchQueue,
		Sessions: settingsStore,
		Logger:   logger.For("trips"),
	})

	schedOpts := schedule.Options{
		Syncer:   launchQueue,
		Interval: cfg.QueueSyncInterval(),
		Logger:   logger.For("scheduler"),
	}
	if gc, ok := store.(schedule.GarbageCollector); ok {
		schedOpts.GC = gc
	}
	scheduler := schedule.NewSyncScheduler(schedOpts)

	hd := handler.New(handler.Deps{
		Settings:  settingsStore,
		Detection: run,
		Locations: feed,
		Trips:     trips,
		Queue:     launchQueue,
		Syncer:    scheduler,
		Metrics:   rec,
		Logger:    logger.For("http"),
	})

	logger.Logger.Info("Agent components wired",
		zap.Bool("postgresql", cfg.PostgreSQLEnabled),
		zap.Bool("rabbitmq", cfg.RabbitMQEnabled),
		zap.Bool("sandbox", cfg.SandboxRuntime),
	)
	return &app{runner: run, scheduler: scheduler, handler: hd}, nil
}
