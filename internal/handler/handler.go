package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/detector"
	"TripGuard/internal/model"
	"TripGuard/internal/service"
	"TripGuard/pkg/metrics"
)

// SettingsStore 由 settings.Store 实现
type SettingsStore interface {
	GetForgottenTripConfig(ctx context.Context) (model.ForgottenTripConfig, error)
	SetForgottenTripConfig(ctx context.Context, cfg model.ForgottenTripConfig) (model.ForgottenTripConfig, error)
	GetFavorites(ctx context.Context) ([]model.FavoriteAddress, error)
	SetFavorites(ctx context.Context, favorites []model.FavoriteAddress) ([]model.FavoriteAddress, error)
}

// Detection 由 runner.Runner 实现
type Detection interface {
	Invalidate()
	Places() []model.PreferredPlace
	State() detector.State
	StartBackgroundTracking(ctx context.Context) (func(), error)
}

// LocationSink 由 location.Feed 实现
type LocationSink interface {
	Push(sample model.LocationSample) int
}

// Trips 由 service.TripService 实现
type Trips interface {
	Launch(ctx context.Context, req model.TripLaunchRequest) (service.LaunchResult, error)
	Active(ctx context.Context) (model.Session, error)
	End(ctx context.Context) (model.Session, error)
}

// PendingQueue 由 queue.LaunchQueue 实现
type PendingQueue interface {
	List(ctx context.Context) ([]model.PendingTripLaunch, error)
}

// QueueSyncer 由 schedule.SyncScheduler 实现
type QueueSyncer interface {
	RunOnce(ctx context.Context) (model.SyncResult, bool)
	LastRun() (time.Time, model.SyncResult)
}

type Deps struct {
	Settings  SettingsStore
	Detection Detection
	Locations LocationSink
	Trips     Trips
	Queue     PendingQueue
	Syncer    QueueSyncer
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Handler agent 的 HTTP 接口，依赖在启动时注入
type Handler struct {
	deps Deps
	log  *zap.Logger

	trackingMu   sync.Mutex
	stopTracking func()
}

func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Handler{deps: deps, log: deps.Logger}
}

// StopTracking 停止通过接口启动的后台定位，进程退出时调用
func (h *Handler) StopTracking() {
	h.trackingMu.Lock()
	stop := h.stopTracking
	h.stopTracking = nil
	h.trackingMu.Unlock()
	if stop != nil {
		stop()
	}
}
