package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/model"
	"TripGuard/storage/mq"
)

type recordingPublisher struct {
	exchange, routingKey string
	body                 interface{}
	err                  error
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.exchange, p.routingKey, p.body = exchange, routingKey, body
	return p.err
}

func TestMQNotifier_Notify(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewMQNotifier(pub, nil)

	require.NoError(t, n.Notify(context.Background(), model.LocalNotification{Title: "t", Body: "b", PlaceLabel: "Maison"}))
	assert.Equal(t, mq.ExchangeEvents, pub.exchange)
	assert.Equal(t, mq.RoutingForgottenTripAlert, pub.routingKey)

	sent, ok := pub.body.(model.LocalNotification)
	require.True(t, ok)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "Maison", sent.PlaceLabel)
}

func TestMQNotifier_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	err := NewMQNotifier(pub, nil).Notify(context.Background(), model.LocalNotification{})
	assert.ErrorContains(t, err, "channel closed")
}
