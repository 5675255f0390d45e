package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/model"
	"TripGuard/pkg/snowflake"
	"TripGuard/storage/kv"
)

func boolPtr(b bool) *bool { return &b }

type fakeProbe struct {
	state model.NetworkState
}

func (p *fakeProbe) Probe(context.Context) model.NetworkState { return p.state }

func (p *fakeProbe) online() {
	p.state = model.NetworkState{IsConnected: boolPtr(true), IsInternetReachable: boolPtr(true)}
}

type fakeCreator struct {
	calls   []model.CreateSessionRequest
	failFor map[string]bool
}

func (c *fakeCreator) CreateSessionWithContacts(_ context.Context, req model.CreateSessionRequest) (model.Session, error) {
	c.calls = append(c.calls, req)
	if c.failFor[req.ToAddress] {
		return model.Session{}, errors.New("backend unavailable")
	}
	return model.Session{
		ID:          fmt.Sprintf("sess-%d", len(c.calls)),
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		ContactIDs:  req.ContactIDs,
		Status:      model.SessionStatusActive,
	}, nil
}

type fakeSignaler struct {
	signals []model.TripStartedSignal
	err     error
}

func (s *fakeSignaler) SendTripStartedSignal(_ context.Context, sig model.TripStartedSignal) (model.SignalResult, error) {
	s.signals = append(s.signals, sig)
	if s.err != nil {
		return model.SignalResult{}, s.err
	}
	return model.SignalResult{Conversations: len(sig.ContactIDs)}, nil
}

type fakeActive struct {
	sessions []model.Session
	err      error
}

func (a *fakeActive) SetActiveSession(_ context.Context, session model.Session) error {
	if a.err != nil {
		return a.err
	}
	a.sessions = append(a.sessions, session)
	return nil
}

type fixture struct {
	active   *fakeActive
	queue    *LaunchQueue
	store    kv.Store
	probe    *fakeProbe
	creator  *fakeCreator
	signaler *fakeSignaler
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := kv.OpenBadger(kv.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ids, err := snowflake.NewNodeGenerator(1)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		probe:    &fakeProbe{},
		creator:  &fakeCreator{failFor: map[string]bool{}},
		signaler: &fakeSignaler{},
		active:   &fakeActive{},
		now:      time.Date(2026, 8, 1, 18, 30, 0, 0, time.UTC),
	}
	f.queue = NewLaunchQueue(Options{
		Store:    store,
		Sessions: f.active,
		IDs:      ids,
		Creator:  f.creator,
		Signaler: f.signaler,
		Probe:    f.probe,
		Clock:    func() time.Time { return f.now },
	})
	return f
}

func launch(to string) model.TripLaunchRequest {
	return model.TripLaunchRequest{
		FromAddress: "Maison",
		ToAddress:   to,
		ContactIDs:  []string{"c1", "c2"},
	}
}

func TestEnqueueAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	eta := f.now.Add(time.Hour)
	req := launch("Bureau")
	req.ExpectedArrival = &eta
	req.ShareLiveLocation = true

	first, err := f.queue.Enqueue(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, f.now, first.QueuedAt)

	// 相同内容再次入队不会去重
	second, err := f.queue.Enqueue(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
	require.NotNil(t, items[0].ExpectedArrival)
	assert.True(t, eta.Equal(*items[0].ExpectedArrival))
	assert.True(t, items[0].ShareLiveLocation)
}

func TestSync_OfflineThenOnline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)

	res := f.queue.Sync(ctx)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.SyncedCount)
	assert.Zero(t, res.FailedCount)
	assert.Equal(t, 1, res.RemainingCount)
	assert.Empty(t, f.creator.calls)

	f.probe.online()
	res = f.queue.Sync(ctx)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Zero(t, res.FailedCount)
	assert.Zero(t, res.RemainingCount)
	assert.Len(t, f.creator.calls, 1)
	require.Len(t, f.signaler.signals, 1)
	assert.Equal(t, "sess-1", f.signaler.signals[0].SessionID)

	// 再同步一次不会重复创建
	res = f.queue.Sync(ctx)
	assert.Zero(t, res.SyncedCount)
	assert.Len(t, f.creator.calls, 1)
}

func TestSync_MarksSyncedTripActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)
	f.queue.Sync(ctx)
	assert.Empty(t, f.active.sessions, "nothing is active while the launch is still queued")

	f.probe.online()
	res := f.queue.Sync(ctx)
	assert.Equal(t, 1, res.SyncedCount)
	require.Len(t, f.active.sessions, 1)
	assert.Equal(t, "sess-1", f.active.sessions[0].ID)
}

func TestSync_ActiveSessionFailureStillDequeues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.active.err = errors.New("disk full")

	_, err := f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)
	f.probe.online()

	res := f.queue.Sync(ctx)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Zero(t, res.RemainingCount)
}

func TestSync_UnknownNetworkStateIsNotReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)

	states := []model.NetworkState{
		{},
		{IsConnected: boolPtr(true)},
		{IsConnected: boolPtr(true), IsInternetReachable: boolPtr(false)},
		{IsConnected: boolPtr(false), IsInternetReachable: boolPtr(true)},
	}
	for _, s := range states {
		f.probe.state = s
		res := f.queue.Sync(ctx)
		assert.True(t, res.Skipped)
	}
	assert.Empty(t, f.creator.calls)
}

func TestSync_PartialFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.probe.online()
	f.creator.failFor["Gare"] = true

	for _, to := range []string{"Bureau", "Gare", "Amis"} {
		_, err := f.queue.Enqueue(ctx, launch(to))
		require.NoError(t, err)
	}

	res := f.queue.Sync(ctx)
	assert.Equal(t, 2, res.SyncedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, 1, res.RemainingCount)

	require.Len(t, f.creator.calls, 3)
	assert.Equal(t, "Bureau", f.creator.calls[0].ToAddress)
	assert.Equal(t, "Gare", f.creator.calls[1].ToAddress)
	assert.Equal(t, "Amis", f.creator.calls[2].ToAddress)

	items, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Gare", items[0].ToAddress)
	assert.Equal(t, 1, items[0].Attempts)
	assert.Equal(t, "backend unavailable", items[0].LastError)
	require.NotNil(t, items[0].LastAttemptAt)

	f.creator.failFor["Gare"] = false
	res = f.queue.Sync(ctx)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Zero(t, res.RemainingCount)
}

func TestSync_SignalFailureStillDequeues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.probe.online()
	f.signaler.err = errors.New("mq down")

	_, err := f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)

	res := f.queue.Sync(ctx)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Zero(t, res.RemainingCount)
	assert.Len(t, f.signaler.signals, 1)
}

func TestSync_EmptyQueue(t *testing.T) {
	f := newFixture(t)
	f.probe.online()

	res := f.queue.Sync(context.Background())
	assert.Equal(t, model.SyncResult{}, res)
}

func TestSync_CorruptQueueSelfHeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, pendingLaunchesKey, []byte("{{{")))

	items, err := f.queue.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.queue.Enqueue(ctx, launch("Bureau"))
	require.NoError(t, err)
	items, err = f.queue.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
