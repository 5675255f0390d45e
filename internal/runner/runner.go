package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/detector"
	"TripGuard/internal/location"
	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
	"TripGuard/pkg/metrics"
)

const (
	// DefaultRefreshWindow 配置与常用地点的缓存窗口
	DefaultRefreshWindow = 3 * time.Minute

	NotificationTitle   = "Trajet oublié ?"
	notificationBodyFmt = "Vous avez quitté %s sans lancer de trajet. Voulez-vous prévenir vos proches ?"
)

// Watcher 定位订阅，由 location.Feed 实现
type Watcher interface {
	Watch(ctx context.Context, opts location.WatchOptions, handler location.Handler) (stop func())
}

// ConfigSource 用户配置与收藏地址，由 settings.Store 实现
type ConfigSource interface {
	GetForgottenTripConfig(ctx context.Context) (model.ForgottenTripConfig, error)
	GetFavorites(ctx context.Context) ([]model.FavoriteAddress, error)
}

// SessionLookup 查询是否有进行中的行程
type SessionLookup interface {
	HasActiveSession(ctx context.Context) (bool, error)
}

// PlaceResolver 由 places.Resolver 实现
type PlaceResolver interface {
	Resolve(ctx context.Context, favorites []model.FavoriteAddress, cfg model.ForgottenTripConfig) []model.PreferredPlace
}

// Notifier 本地通知调度
type Notifier interface {
	Notify(ctx context.Context, notification model.LocalNotification) error
}

type Options struct {
	Watcher      Watcher
	Permissions  Permissions
	Capabilities Capabilities
	Config       ConfigSource
	Sessions     SessionLookup
	Resolver     PlaceResolver
	Notifier     Notifier

	WatchOptions  location.WatchOptions
	RefreshWindow time.Duration

	// OnInfo 非致命事件回调，可为空
	OnInfo  func(message string)
	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Runner 把定位采样、配置刷新与通知串起来，业务判断全部交给 detector
type Runner struct {
	opts Options
	log  *zap.Logger

	startMu sync.Mutex
	started bool

	mu          sync.Mutex
	state       detector.State
	cfg         model.ForgottenTripConfig
	places      []model.PreferredPlace
	lastRefresh time.Time
	refreshed   bool
}

func New(opts Options) *Runner {
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Capabilities == nil {
		opts.Capabilities = StaticCapabilities{}
	}
	return &Runner{
		opts:  opts,
		log:   opts.Logger,
		state: detector.Outside(),
		cfg:   model.DefaultForgottenTripConfig(),
	}
}

func (r *Runner) info(msg string, fields ...zap.Field) {
	r.log.Info(msg, fields...)
	if r.opts.OnInfo != nil {
		r.opts.OnInfo(msg)
	}
}

// Start 请求定位权限并开始监听，返回的 stop 只需调用一次
// 权限被拒绝或重复启动时返回空操作的 stop，不返回错误
// 只有监听真正建立后才算启动，权限被拒绝后可以再次调用
func (r *Runner) Start(ctx context.Context) (stop func()) {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.started {
		r.info("Forgotten trip runner already started")
		return func() {}
	}

	granted, err := r.opts.Permissions.RequestLocation(ctx)
	if err != nil {
		r.info("Location permission request failed, forgotten trip detection disabled", zap.Error(err))
		return func() {}
	}
	if !granted {
		r.info("Location permission denied, forgotten trip detection disabled")
		return func() {}
	}

	if err := r.refresh(ctx, true); err != nil {
		r.info("Initial forgotten trip refresh failed", zap.Error(err))
	}

	watchStop := r.opts.Watcher.Watch(ctx, r.opts.WatchOptions, r.HandleSample)
	r.started = true
	r.log.Info("Forgotten trip runner started",
		zap.Duration("interval", r.opts.WatchOptions.Interval),
		zap.Float64("distance_meters", r.opts.WatchOptions.DistanceMeters),
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			watchStop()
			r.log.Info("Forgotten trip runner stopped")
		})
	}
}

// StartBackgroundTracking 显式启动后台定位，沙箱运行时返回 BackgroundLocationUnsupported
func (r *Runner) StartBackgroundTracking(ctx context.Context) (func(), error) {
	if !r.opts.Capabilities.SupportsBackgroundLocation() {
		return nil, errors.BackgroundLocationUnsupported
	}
	granted, err := r.opts.Permissions.RequestLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("request location permission: %w", err)
	}
	if !granted {
		return nil, errors.LocationPermissionDenied
	}
	return r.Start(ctx), nil
}

// Invalidate 让下一条采样强制刷新配置与地点
func (r *Runner) Invalidate() {
	r.mu.Lock()
	r.refreshed = false
	r.mu.Unlock()
}

// Places 当前缓存的常用地点
func (r *Runner) Places() []model.PreferredPlace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PreferredPlace, len(r.places))
	copy(out, r.places)
	return out
}

// State 当前检测状态
func (r *Runner) State() detector.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) refresh(ctx context.Context, force bool) error {
	now := r.opts.Clock()

	r.mu.Lock()
	due := force || !r.refreshed || now.Sub(r.lastRefresh) >= r.opts.RefreshWindow
	r.mu.Unlock()
	if !due {
		return nil
	}

	cfg, err := r.opts.Config.GetForgottenTripConfig(ctx)
	if err != nil {
		return fmt.Errorf("load forgotten trip config: %w", err)
	}

	var places []model.PreferredPlace
	if cfg.Enabled {
		favorites, err := r.opts.Config.GetFavorites(ctx)
		if err != nil {
			return fmt.Errorf("load favorites: %w", err)
		}
		places = r.opts.Resolver.Resolve(ctx, favorites, cfg)
	}

	r.mu.Lock()
	r.cfg = cfg
	r.places = places
	r.lastRefresh = now
	r.refreshed = true
	r.mu.Unlock()

	r.log.Debug("Forgotten trip places refreshed",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("places", len(places)),
	)
	return nil
}

// HandleSample 处理一条定位采样，任何失败都只通过 OnInfo 报告，不会中断监听
func (r *Runner) HandleSample(ctx context.Context, sample model.LocationSample) {
	failed := true
	defer func() {
		if rec := recover(); rec != nil {
			r.info("Forgotten trip sample panicked", zap.Any("panic", rec))
		}
		r.opts.Metrics.RecordSample(ctx, failed)
	}()

	if err := r.processSample(ctx, sample); err != nil {
		r.info("Forgotten trip sample failed", zap.Error(err))
		return
	}
	failed = false
}

func (r *Runner) processSample(ctx context.Context, sample model.LocationSample) error {
	if err := r.refresh(ctx, false); err != nil {
		return err
	}

	r.mu.Lock()
	cfg, places := r.cfg, r.places
	r.mu.Unlock()

	if !cfg.Enabled || len(places) == 0 {
		return nil
	}

	active, err := r.opts.Sessions.HasActiveSession(ctx)
	if err != nil {
		return fmt.Errorf("active session lookup: %w", err)
	}

	now := r.opts.Clock()
	r.mu.Lock()
	decision := detector.DetectForgottenTrip(detector.Input{
		Coords:           sample.Coordinates,
		Places:           places,
		Config:           cfg,
		State:            r.state,
		HasActiveSession: active,
		Now:              now,
	})
	previous := r.state
	r.state = decision.NextState
	r.mu.Unlock()

	if previous != decision.NextState {
		r.log.Debug("Forgotten trip state changed",
			zap.Stringer("from", previous),
			zap.Stringer("to", decision.NextState),
		)
	}

	if !decision.ShouldNotify {
		return nil
	}
	return r.notify(ctx, decision, now)
}

func (r *Runner) notify(ctx context.Context, decision detector.Decision, now time.Time) error {
	placeType := string(model.PlaceTypeOther)
	placeID := ""
	if decision.Place != nil {
		placeType = string(decision.Place.Type)
		placeID = decision.Place.ID
	}
	r.opts.Metrics.RecordAlert(ctx, placeType)

	if !r.opts.Capabilities.SupportsLocalNotifications() {
		r.log.Debug("Local notifications unsupported in this runtime, skipping alert")
		return nil
	}

	granted, err := r.opts.Permissions.RequestNotifications(ctx)
	if err != nil {
		return fmt.Errorf("request notification permission: %w", err)
	}
	if !granted {
		r.info("Notification permission denied, forgotten trip alert not shown")
		return nil
	}

	err = r.opts.Notifier.Notify(ctx, model.LocalNotification{
		Title:      NotificationTitle,
		Body:       fmt.Sprintf(notificationBodyFmt, decision.PlaceLabel),
		PlaceID:    placeID,
		PlaceLabel: decision.PlaceLabel,
		FiredAt:    now,
	})
	if err != nil {
		return fmt.Errorf("schedule notification: %w", err)
	}

	r.log.Info("Forgotten trip alert fired",
		zap.String("place_id", placeID),
		zap.String("place_label", decision.PlaceLabel),
	)
	return nil
}
