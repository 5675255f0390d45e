package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/storage/mq"
)

// Publisher 消息发布接口，由 storage/mq.Publisher 实现
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// MQNotifier 通过 RabbitMQ 把本地通知交给设备侧的通知调度器
type MQNotifier struct {
	publisher Publisher
	log       *zap.Logger
}

func NewMQNotifier(publisher Publisher, log *zap.Logger) *MQNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQNotifier{publisher: publisher, log: log}
}

func (n *MQNotifier) Notify(ctx context.Context, notification model.LocalNotification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if err := n.publisher.Publish(ctx, mq.ExchangeEvents, mq.RoutingForgottenTripAlert, notification); err != nil {
		return fmt.Errorf("publish local notification: %w", err)
	}

	n.log.Info("Local notification scheduled",
		zap.String("notification_id", notification.ID),
		zap.String("place_id", notification.PlaceID),
	)
	return nil
}

// LogNotifier 未启用 RabbitMQ 时只记录日志
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, notification model.LocalNotification) error {
	n.log.Info("Local notification",
		zap.String("title", notification.Title),
		zap.String("body", notification.Body),
		zap.String("place_label", notification.PlaceLabel),
	)
	return nil
}
