package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"TripGuard/config"
)

const (
	// ExchangeEvents 行程事件交换机（topic）
	ExchangeEvents = "tripguard.events"

	RoutingTripStarted        = "trip.started"
	RoutingForgottenTripAlert = "forgotten_trip.alert"
	QueueGuardianSignals      = "tripguard.guardian.signals"
	QueueLocalNotifications   = "tripguard.local.notifications"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// Init 建立连接并声明拓扑，RABBITMQ_ENABLED=false 时不会被调用
func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			return
		}

		ch, err := conn.Channel()
		if err != nil {
			connErr = fmt.Errorf("failed to open channel: %w", err)
			return
		}
		defer ch.Close()

		connErr = declareTopology(ch)
	})

	return connErr
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeEvents, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeEvents, err)
	}

	bindings := map[string]string{
		QueueGuardianSignals:    RoutingTripStarted,
		QueueLocalNotifications: RoutingForgottenTripAlert,
	}
	for queue, key := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, ExchangeEvents, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// Connection 返回当前连接，未初始化时为 nil
func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	pubMutex.Lock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
	pubMutex.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
