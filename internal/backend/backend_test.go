package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/model"
	"TripGuard/storage/mq"
)

type capturePublisher struct {
	messages []GuardianMessage
	keys     []string
	failAt   int
}

func (p *capturePublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	if p.failAt > 0 && len(p.messages)+1 == p.failAt {
		return errors.New("channel closed")
	}
	p.keys = append(p.keys, exchange+"/"+routingKey)
	p.messages = append(p.messages, body.(GuardianMessage))
	return nil
}

type captureRecorder struct {
	sessionID string
	calls     int
}

func (r *captureRecorder) MarkSignalled(_ context.Context, sessionID string, _ time.Time) error {
	r.calls++
	r.sessionID = sessionID
	return nil
}

func TestNewSessionRecord(t *testing.T) {
	eta := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	rec := newSessionRecord("pub-1", model.CreateSessionRequest{
		FromAddress:         "Maison",
		ToAddress:           "Bureau",
		ContactIDs:          []string{"a", "", "b", "a"},
		ExpectedArrivalTime: &eta,
		ShareLiveLocation:   true,
	})

	assert.Equal(t, model.SessionStatusActive, rec.Status)
	require.Len(t, rec.Contacts, 2)

	session := rec.ToSession()
	assert.Equal(t, "pub-1", session.ID)
	assert.Equal(t, []string{"a", "b"}, session.ContactIDs)
	assert.True(t, session.ShareLiveLocation)
	assert.Equal(t, &eta, session.ExpectedArrivalTime)
}

func TestGuardianPublisher_OneMessagePerContact(t *testing.T) {
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	g := NewGuardianPublisher(pub, rec, nil)

	res, err := g.SendTripStartedSignal(context.Background(), model.TripStartedSignal{
		SessionID:   "sess-1",
		FromAddress: "Maison",
		ToAddress:   "Bureau",
		ContactIDs:  []string{"c1", "c2"},
		StartedAt:   time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Conversations)
	require.Len(t, pub.messages, 2)
	assert.Equal(t, mq.ExchangeEvents+"/"+mq.RoutingTripStarted, pub.keys[0])
	assert.Equal(t, "c2", pub.messages[1].ContactID)
	assert.NotEqual(t, pub.messages[0].MessageID, pub.messages[1].MessageID)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "sess-1", rec.sessionID)
}

func TestGuardianPublisher_Failure(t *testing.T) {
	pub := &capturePublisher{failAt: 2}
	rec := &captureRecorder{}
	g := NewGuardianPublisher(pub, rec, nil)

	res, err := g.SendTripStartedSignal(context.Background(), model.TripStartedSignal{
		SessionID:  "sess-1",
		ContactIDs: []string{"c1", "c2"},
	})
	assert.Error(t, err)
	assert.Equal(t, 1, res.Conversations)
	assert.Zero(t, rec.calls)
}

func TestGuardianPublisher_NoContacts(t *testing.T) {
	pub := &capturePublisher{}
	res, err := NewGuardianPublisher(pub, nil, nil).SendTripStartedSignal(context.Background(), model.TripStartedSignal{SessionID: "s"})
	require.NoError(t, err)
	assert.Zero(t, res.Conversations)
	assert.Empty(t, pub.messages)
}
