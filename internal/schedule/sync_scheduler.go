package schedule

// 离线行程同步调度器：定期检查网络并冲刷待发起的行程

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
)

// Syncer 由 queue.LaunchQueue 实现
type Syncer interface {
	Sync(ctx context.Context) model.SyncResult
}

// GarbageCollector 由 kv.BadgerStore 实现，Redis 后端没有
type GarbageCollector interface {
	RunGC() error
}

type Options struct {
	Syncer     Syncer
	Interval   time.Duration
	RunTimeout time.Duration
	// GC 为空时不做 value log 回收
	GC         GarbageCollector
	GCInterval time.Duration
	Logger     *zap.Logger
}

// SyncScheduler 周期性同步，也可以被手动触发（例如网络恢复时）
type SyncScheduler struct {
	opts    Options
	logger  *zap.Logger
	trigger chan struct{}

	jobMu       sync.Mutex
	jobRunning  bool
	lastRunTime time.Time
	lastResult  model.SyncResult
}

func NewSyncScheduler(opts Options) *SyncScheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &SyncScheduler{
		opts:    opts,
		logger:  opts.Logger,
		trigger: make(chan struct{}, 1),
	}
}

// RunOnce 执行一次同步，已有同步在跑时直接跳过
func (s *SyncScheduler) RunOnce(ctx context.Context) (model.SyncResult, bool) {
	s.jobMu.Lock()
	if s.jobRunning {
		s.jobMu.Unlock()
		s.logger.Debug("Queue sync already running, skipping")
		return model.SyncResult{}, false
	}
	s.jobRunning = true
	s.jobMu.Unlock()

	defer func() {
		s.jobMu.Lock()
		s.jobRunning = false
		s.jobMu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	start := time.Now()
	result := s.opts.Syncer.Sync(runCtx)

	s.jobMu.Lock()
	s.lastRunTime = start
	s.lastResult = result
	s.jobMu.Unlock()

	if result.SyncedCount > 0 || result.FailedCount > 0 {
		s.logger.Info("Queue sync completed",
			zap.Int("synced", result.SyncedCount),
			zap.Int("failed", result.FailedCount),
			zap.Int("remaining", result.RemainingCount),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result, true
}

// Trigger 请求尽快同步一次，不阻塞，重复请求会合并
func (s *SyncScheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// LastRun 返回最近一次同步的时间与结果
func (s *SyncScheduler) LastRun() (time.Time, model.SyncResult) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.lastRunTime, s.lastResult
}

// Run 阻塞直到 ctx 结束
func (s *SyncScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var gcC <-chan time.Time
	if s.opts.GC != nil {
		gcTicker := time.NewTicker(s.opts.GCInterval)
		defer gcTicker.Stop()
		gcC = gcTicker.C
	}

	s.logger.Info("Queue sync scheduler started",
		zap.Duration("interval", s.opts.Interval),
		zap.Bool("gc", s.opts.GC != nil),
	)

	// 启动时先冲刷一次
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Queue sync scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.trigger:
			s.RunOnce(ctx)
		case <-gcC:
			if err := s.opts.GC.RunGC(); err != nil {
				s.logger.Warn("Value log GC failed", zap.Error(err))
			}
		}
	}
}
