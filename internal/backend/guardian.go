package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/storage/mq"
)

// Publisher 由 storage/mq.Publisher 实现
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// SignalRecorder 记录信号发送结果，可为空
type SignalRecorder interface {
	MarkSignalled(ctx context.Context, sessionID string, at time.Time) error
}

// GuardianMessage 发给单个守护人会话的消息
type GuardianMessage struct {
	MessageID           string     `json:"message_id"`
	SessionID           string     `json:"session_id"`
	ContactID           string     `json:"contact_id"`
	FromAddress         string     `json:"from_address"`
	ToAddress           string     `json:"to_address"`
	ExpectedArrivalTime *time.Time `json:"expected_arrival_time,omitempty"`
	ShareLiveLocation   bool       `json:"share_live_location"`
	StartedAt           time.Time  `json:"started_at"`
}

// GuardianPublisher 每个联系人一条 trip.started 消息
type GuardianPublisher struct {
	publisher Publisher
	recorder  SignalRecorder
	log       *zap.Logger
}

func NewGuardianPublisher(publisher Publisher, recorder SignalRecorder, log *zap.Logger) *GuardianPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &GuardianPublisher{publisher: publisher, recorder: recorder, log: log}
}

// SendTripStartedSignal 返回成功投递的会话数，任何一条失败都返回错误
func (g *GuardianPublisher) SendTripStartedSignal(ctx context.Context, signal model.TripStartedSignal) (model.SignalResult, error) {
	var result model.SignalResult
	for _, contactID := range signal.ContactIDs {
		msg := GuardianMessage{
			MessageID:           uuid.NewString(),
			SessionID:           signal.SessionID,
			ContactID:           contactID,
			FromAddress:         signal.FromAddress,
			ToAddress:           signal.ToAddress,
			ExpectedArrivalTime: signal.ExpectedArrivalTime,
			ShareLiveLocation:   signal.ShareLiveLocation,
			StartedAt:           signal.StartedAt,
		}
		if err := g.publisher.Publish(ctx, mq.ExchangeEvents, mq.RoutingTripStarted, msg); err != nil {
			return result, fmt.Errorf("publish trip started signal to %s: %w", contactID, err)
		}
		result.Conversations++
	}

	if g.recorder != nil && result.Conversations > 0 {
		if err := g.recorder.MarkSignalled(ctx, signal.SessionID, signal.StartedAt); err != nil {
			g.log.Warn("Failed to record guardian signal", zap.String("session_id", signal.SessionID), zap.Error(err))
		}
	}

	g.log.Info("Trip started signal published",
		zap.String("session_id", signal.SessionID),
		zap.Int("conversations", result.Conversations),
	)
	return result, nil
}
