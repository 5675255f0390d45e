package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
)

// UnavailableCreator 未配置数据库时使用，所有创建都失败，行程留在离线队列
type UnavailableCreator struct{}

func (UnavailableCreator) CreateSessionWithContacts(context.Context, model.CreateSessionRequest) (model.Session, error) {
	return model.Session{}, errors.TripCreationFailed
}

func (UnavailableCreator) EndSession(context.Context, string) error {
	return nil
}

// LogSignaler 未配置 RabbitMQ 时只记录日志
type LogSignaler struct {
	Log *zap.Logger
}

func (s LogSignaler) SendTripStartedSignal(_ context.Context, signal model.TripStartedSignal) (model.SignalResult, error) {
	if s.Log != nil {
		s.Log.Info("Trip started signal (not published)",
			zap.String("session_id", signal.SessionID),
			zap.Int("contacts", len(signal.ContactIDs)),
			zap.Time("started_at", signal.StartedAt.In(time.UTC)),
		)
	}
	return model.SignalResult{}, nil
}
