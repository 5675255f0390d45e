package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/pkg/metrics"
	"TripGuard/pkg/snowflake"
	"TripGuard/storage/kv"
)

var pendingLaunchesKey = kv.Key("trip", "pending_launches")

// TripCreator 远端创建行程会话
type TripCreator interface {
	CreateSessionWithContacts(ctx context.Context, req model.CreateSessionRequest) (model.Session, error)
}

// GuardianSignaler 通知守护人行程已开始
type GuardianSignaler interface {
	SendTripStartedSignal(ctx context.Context, signal model.TripStartedSignal) (model.SignalResult, error)
}

// NetworkProbe 网络可达性探测
type NetworkProbe interface {
	Probe(ctx context.Context) model.NetworkState
}

// ActiveSessionSetter 同步成功后记录本地进行中的行程
type ActiveSessionSetter interface {
	SetActiveSession(ctx context.Context, session model.Session) error
}

type Options struct {
	Store    kv.Store
	IDs      snowflake.Generator
	Creator  TripCreator
	Signaler GuardianSignaler
	Probe    NetworkProbe
	Clock    func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Recorder

	// Sessions 可为空，为空时同步不改变本地进行中的行程
	Sessions ActiveSessionSetter
}

// LaunchQueue 离线行程发起队列，FIFO，至少一次投递
type LaunchQueue struct {
	opts Options
	log  *zap.Logger

	// mu 串行化对持久化列表的读改写
	mu sync.Mutex
	// syncMu 保证同一时刻只有一次同步
	syncMu sync.Mutex
}

func NewLaunchQueue(opts Options) *LaunchQueue {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IDs == nil {
		opts.IDs = snowflake.NodeGenerator{}
	}
	return &LaunchQueue{opts: opts, log: opts.Logger}
}

// load 读取持久化队列，内容损坏时按空队列处理
func (q *LaunchQueue) load(ctx context.Context) ([]model.PendingTripLaunch, error) {
	var items []model.PendingTripLaunch
	if _, err := kv.GetJSON(ctx, q.opts.Store, pendingLaunchesKey, &items); err != nil {
		if errors.Is(err, kv.ErrCorrupt) {
			q.log.Warn("Pending trip launch queue is corrupt, starting empty", zap.Error(err))
			return []model.PendingTripLaunch{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []model.PendingTripLaunch{}
	}
	return items, nil
}

func (q *LaunchQueue) save(ctx context.Context, items []model.PendingTripLaunch) error {
	return kv.SetJSON(ctx, q.opts.Store, pendingLaunchesKey, items)
}

// Enqueue 追加一条待同步的行程，不做去重
func (q *LaunchQueue) Enqueue(ctx context.Context, req model.TripLaunchRequest) (model.PendingTripLaunch, error) {
	id, err := q.opts.IDs.NextID()
	if err != nil {
		return model.PendingTripLaunch{}, fmt.Errorf("generate queue item id: %w", err)
	}

	contactIDs := req.ContactIDs
	if contactIDs == nil {
		contactIDs = []string{}
	}
	item := model.PendingTripLaunch{
		ID:                id,
		FromAddress:       req.FromAddress,
		ToAddress:         req.ToAddress,
		ContactIDs:        contactIDs,
		ExpectedArrival:   req.ExpectedArrival,
		ShareLiveLocation: req.ShareLiveLocation,
		QueuedAt:          q.opts.Clock().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return model.PendingTripLaunch{}, err
	}
	items = append(items, item)
	if err := q.save(ctx, items); err != nil {
		return model.PendingTripLaunch{}, fmt.Errorf("persist pending trip launch: %w", err)
	}

	q.opts.Metrics.RecordEnqueue(ctx)
	q.log.Info("Trip launch queued",
		zap.String("item_id", item.ID),
		zap.Int("queue_length", len(items)),
	)
	return item, nil
}

// List 返回完整队列，保持入队顺序
func (q *LaunchQueue) List(ctx context.Context) ([]model.PendingTripLaunch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Sync 网络就绪时按 FIFO 重放队列
// 远端创建成功即出队，守护人信号失败不影响出队；创建失败的条目保留并记录重试信息
func (q *LaunchQueue) Sync(ctx context.Context) model.SyncResult {
	q.syncMu.Lock()
	defer q.syncMu.Unlock()

	start := time.Now()

	snapshot, err := q.List(ctx)
	if err != nil {
		q.log.Warn("Failed to read pending trip launches", zap.Error(err))
		return model.SyncResult{Skipped: true}
	}

	state := q.opts.Probe.Probe(ctx)
	if !state.Ready() {
		q.opts.Metrics.RecordSync(ctx, 0, 0, true, 0)
		q.log.Debug("Network not ready, skipping trip launch sync", zap.Int("queue_length", len(snapshot)))
		return model.SyncResult{RemainingCount: len(snapshot), Skipped: true}
	}

	var result model.SyncResult
	for _, item := range snapshot {
		if q.syncItem(ctx, item) {
			result.SyncedCount++
		} else {
			result.FailedCount++
		}
	}

	remaining, err := q.List(ctx)
	if err != nil {
		q.log.Warn("Failed to read pending trip launches after sync", zap.Error(err))
	}
	result.RemainingCount = len(remaining)

	q.opts.Metrics.RecordSync(ctx, result.SyncedCount, result.FailedCount, false, time.Since(start).Seconds())
	if len(snapshot) > 0 {
		q.log.Info("Trip launch sync finished",
			zap.Int("synced", result.SyncedCount),
			zap.Int("failed", result.FailedCount),
			zap.Int("remaining", result.RemainingCount),
		)
	}
	return result
}

func (q *LaunchQueue) syncItem(ctx context.Context, item model.PendingTripLaunch) bool {
	session, err := q.opts.Creator.CreateSessionWithContacts(ctx, model.CreateSessionRequest{
		FromAddress:         item.FromAddress,
		ToAddress:           item.ToAddress,
		ContactIDs:          item.ContactIDs,
		ExpectedArrivalTime: item.ExpectedArrival,
		ShareLiveLocation:   item.ShareLiveLocation,
	})
	if err != nil {
		q.log.Warn("Queued trip creation failed, keeping item for retry",
			zap.String("item_id", item.ID),
			zap.Int("attempts", item.Attempts+1),
			zap.Error(err),
		)
		if uerr := q.recordFailure(ctx, item.ID, err); uerr != nil {
			q.log.Warn("Failed to record retry info", zap.String("item_id", item.ID), zap.Error(uerr))
		}
		return false
	}

	signal := model.TripStartedSignal{
		SessionID:           session.ID,
		FromAddress:         item.FromAddress,
		ToAddress:           item.ToAddress,
		ContactIDs:          item.ContactIDs,
		ExpectedArrivalTime: item.ExpectedArrival,
		ShareLiveLocation:   item.ShareLiveLocation,
		StartedAt:           q.opts.Clock().UTC(),
	}
	if res, err := q.opts.Signaler.SendTripStartedSignal(ctx, signal); err != nil {
		q.log.Warn("Trip started signal failed, trip still synced",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		q.log.Debug("Trip started signal sent",
			zap.String("session_id", session.ID),
			zap.Int("conversations", res.Conversations),
		)
	}

	if q.opts.Sessions != nil {
		if err := q.opts.Sessions.SetActiveSession(ctx, session); err != nil {
			q.log.Warn("Failed to mark synced trip as active",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
		}
	}

	if err := q.remove(ctx, item.ID); err != nil {
		// 会话已创建，下一次同步可能重复创建
		q.log.Error("Failed to dequeue synced trip launch",
			zap.String("item_id", item.ID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
	return true
}

func (q *LaunchQueue) remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return q.save(ctx, kept)
}

func (q *LaunchQueue) recordFailure(ctx context.Context, id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	now := q.opts.Clock().UTC()
	for i := range items {
		if items[i].ID == id {
			items[i].Attempts++
			items[i].LastError = cause.Error()
			items[i].LastAttemptAt = &now
		}
	}
	return q.save(ctx, items)
}
