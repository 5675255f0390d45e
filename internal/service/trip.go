package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/internal/queue"
	"TripGuard/pkg/errors"
)

// SessionEnder 远端结束会话
type SessionEnder interface {
	EndSession(ctx context.Context, sessionID string) error
}

// ActiveSessionStore 由 settings.Store 实现
type ActiveSessionStore interface {
	GetActiveSession(ctx context.Context) (model.Session, bool, error)
	SetActiveSession(ctx context.Context, session model.Session) error
	ClearActiveSession(ctx context.Context) error
}

// LaunchQueue 由 queue.LaunchQueue 实现
type LaunchQueue interface {
	Enqueue(ctx context.Context, req model.TripLaunchRequest) (model.PendingTripLaunch, error)
}

type TripServiceOptions struct {
	Probe    queue.NetworkProbe
	Creator  queue.TripCreator
	Ender    SessionEnder
	Signaler queue.GuardianSignaler
	Queue    LaunchQueue
	Sessions ActiveSessionStore
	Clock    func() time.Time
	Logger   *zap.Logger
}

// LaunchResult 在线直接创建或离线入队二选一
type LaunchResult struct {
	Queued  bool                     `json:"queued"`
	Session *model.Session           `json:"session,omitempty"`
	Pending *model.PendingTripLaunch `json:"pending,omitempty"`
	Signal  *model.SignalResult      `json:"signal,omitempty"`
}

// TripService 行程发起与结束
type TripService struct {
	opts TripServiceOptions
	log  *zap.Logger
}

func NewTripService(opts TripServiceOptions) *TripService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &TripService{opts: opts, log: opts.Logger}
}

// Launch 网络就绪时直接创建，否则（或创建失败时）入队等待同步
func (s *TripService) Launch(ctx context.Context, req model.TripLaunchRequest) (LaunchResult, error) {
	req.FromAddress = strings.TrimSpace(req.FromAddress)
	req.ToAddress = strings.TrimSpace(req.ToAddress)
	if req.FromAddress == "" || req.ToAddress == "" {
		return LaunchResult{}, errors.InvalidRequest
	}

	if !s.opts.Probe.Probe(ctx).Ready() {
		return s.enqueue(ctx, req, "network not ready")
	}

	session, err := s.opts.Creator.CreateSessionWithContacts(ctx, model.CreateSessionRequest{
		FromAddress:         req.FromAddress,
		ToAddress:           req.ToAddress,
		ContactIDs:          req.ContactIDs,
		ExpectedArrivalTime: req.ExpectedArrival,
		ShareLiveLocation:   req.ShareLiveLocation,
	})
	if err != nil {
		s.log.Warn("Direct trip creation failed, queueing for retry", zap.Error(err))
		return s.enqueue(ctx, req, "creation failed")
	}

	result := LaunchResult{Session: &session}
	signal, err := s.opts.Signaler.SendTripStartedSignal(ctx, model.TripStartedSignal{
		SessionID:           session.ID,
		FromAddress:         session.FromAddress,
		ToAddress:           session.ToAddress,
		ContactIDs:          req.ContactIDs,
		ExpectedArrivalTime: req.ExpectedArrival,
		ShareLiveLocation:   req.ShareLiveLocation,
		StartedAt:           s.opts.Clock().UTC(),
	})
	if err != nil {
		s.log.Warn("Trip started signal failed", zap.String("session_id", session.ID), zap.Error(err))
	} else {
		result.Signal = &signal
	}

	if err := s.opts.Sessions.SetActiveSession(ctx, session); err != nil {
		return result, errors.StorageUnavailable
	}

	s.log.Info("Trip launched", zap.String("session_id", session.ID))
	return result, nil
}

func (s *TripService) enqueue(ctx context.Context, req model.TripLaunchRequest, reason string) (LaunchResult, error) {
	item, err := s.opts.Queue.Enqueue(ctx, req)
	if err != nil {
		s.log.Error("Failed to queue trip launch", zap.Error(err))
		return LaunchResult{}, errors.StorageUnavailable
	}
	s.log.Info("Trip launch queued", zap.String("item_id", item.ID), zap.String("reason", reason))
	return LaunchResult{Queued: true, Pending: &item}, nil
}

// Active 返回进行中的行程
func (s *TripService) Active(ctx context.Context) (model.Session, error) {
	session, ok, err := s.opts.Sessions.GetActiveSession(ctx)
	if err != nil {
		return model.Session{}, errors.StorageUnavailable
	}
	if !ok {
		return model.Session{}, errors.NoActiveSession
	}
	return session, nil
}

// End 清除本地进行中的行程，远端结束为尽力而为
func (s *TripService) End(ctx context.Context) (model.Session, error) {
	session, err := s.Active(ctx)
	if err != nil {
		return model.Session{}, err
	}

	if s.opts.Ender != nil {
		if err := s.opts.Ender.EndSession(ctx, session.ID); err != nil {
			s.log.Warn("Failed to end remote trip session", zap.String("session_id", session.ID), zap.Error(err))
		}
	}

	if err := s.opts.Sessions.ClearActiveSession(ctx); err != nil {
		return model.Session{}, errors.StorageUnavailable
	}

	session.Status = model.SessionStatusEnded
	s.log.Info("Trip ended", zap.String("session_id", session.ID))
	return session, nil
}
