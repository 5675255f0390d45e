package location

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/pkg/geo"
)

const subscriberBuffer = 16

// WatchOptions 采样过滤条件，两个条件都满足才投递（第一条总是投递）
type WatchOptions struct {
	Interval       time.Duration
	DistanceMeters float64
}

// Handler 串行调用，上一条处理完之前不会投递下一条
type Handler func(ctx context.Context, sample model.LocationSample)

// Feed 进程内的定位数据源，HTTP 接口 Push，检测循环 Watch
type Feed struct {
	log *zap.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	opts   WatchOptions
	ch     chan model.LocationSample
	cancel context.CancelFunc
	done   chan struct{}

	last    model.LocationSample
	hasLast bool
}

func NewFeed(log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{log: log, subs: make(map[int]*subscriber)}
}

// Watch 订阅定位数据，返回的 stop 立即停止后续投递，正在执行的 handler 允许完成
// handler 拿到的 ctx 不随 stop 取消，只有投递循环受 stop 控制
func (f *Feed) Watch(ctx context.Context, opts WatchOptions, handler Handler) (stop func()) {
	handlerCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		opts:   opts,
		ch:     make(chan model.LocationSample, subscriberBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case sample := <-sub.ch:
				if ctx.Err() != nil {
					return
				}
				if !sub.accept(sample) {
					continue
				}
				handler(handlerCtx, sample)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			cancel()
		})
	}
}

func (s *subscriber) accept(sample model.LocationSample) bool {
	if !s.hasLast {
		s.last, s.hasLast = sample, true
		return true
	}
	if sample.RecordedAt.Sub(s.last.RecordedAt) < s.opts.Interval {
		return false
	}
	if geo.DistanceMeters(s.last.Coordinates, sample.Coordinates) < s.opts.DistanceMeters {
		return false
	}
	s.last = sample
	return true
}

// Push 推送一条采样，订阅者缓冲已满时丢弃该条
func (f *Feed) Push(sample model.LocationSample) int {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for id, sub := range f.subs {
		select {
		case sub.ch <- sample:
			delivered++
		default:
			f.log.Warn("Location subscriber is lagging, dropping sample", zap.Int("subscriber", id))
		}
	}
	return delivered
}

// Subscribers 当前订阅者数量
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
