package location

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TripGuard/internal/model"
)

type collector struct {
	mu      sync.Mutex
	samples []model.LocationSample
	got     chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 64)}
}

func (c *collector) handle(_ context.Context, s model.LocationSample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for sample %d", i+1)
		}
	}
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func sample(lat float64, at time.Time) model.LocationSample {
	return model.LocationSample{Coordinates: model.Coordinates{Latitude: lat, Longitude: 2.35}, RecordedAt: at}
}

func TestFeed_FiltersByIntervalAndDistance(t *testing.T) {
	f := NewFeed(nil)
	c := newCollector()
	stop := f.Watch(context.Background(), WatchOptions{Interval: 20 * time.Second, DistanceMeters: 30}, c.handle)
	defer stop()

	t0 := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	f.Push(sample(48.8500, t0))                      // 第一条总是投递
	f.Push(sample(48.8510, t0.Add(5*time.Second)))   // 太快
	f.Push(sample(48.85001, t0.Add(40*time.Second))) // 距离不足
	f.Push(sample(48.8510, t0.Add(60*time.Second)))  // 通过

	c.wait(t, 2)
	// 给过滤掉的样本留出时间，确认没有额外投递
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, c.len())
}

func TestFeed_StopHaltsDelivery(t *testing.T) {
	f := NewFeed(nil)
	c := newCollector()
	stop := f.Watch(context.Background(), WatchOptions{}, c.handle)

	t0 := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	f.Push(sample(48.85, t0))
	c.wait(t, 1)

	stop()
	stop()
	assert.Zero(t, f.Subscribers())
	assert.Zero(t, f.Push(sample(48.86, t0.Add(time.Minute))))
	assert.Equal(t, 1, c.len())
}

func TestFeed_SerialDelivery(t *testing.T) {
	f := NewFeed(nil)

	var (
		mu        sync.Mutex
		active    int
		maxActive int
		processed = make(chan struct{}, 8)
	)
	handler := func(context.Context, model.LocationSample) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		processed <- struct{}{}
	}
	stop := f.Watch(context.Background(), WatchOptions{}, handler)
	defer stop()

	t0 := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		f.Push(sample(48.85+float64(i)*0.01, t0.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 4; i++ {
		select {
		case <-processed:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, maxActive)
}

func TestFeed_StopDoesNotCancelInFlightHandler(t *testing.T) {
	f := NewFeed(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)

	stop := f.Watch(context.Background(), WatchOptions{}, func(ctx context.Context, _ model.LocationSample) {
		close(started)
		<-release
		result <- ctx.Err()
	})

	f.Push(sample(48.85, time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	stop()
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish")
	}
}
