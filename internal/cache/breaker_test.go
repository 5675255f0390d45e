package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("geocoder", 2, time.Minute, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	fail := func(context.Context) error { return errBoom }
	ok := func(context.Context) error { return nil }

	assert.ErrorIs(t, cb.Call(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	calls := 0
	err := cb.Call(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Zero(t, calls)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(ctx, ok))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("geocoder", 1, 10*time.Second, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = cb.Call(ctx, func(context.Context) error { return errBoom })
	assert.Equal(t, StateOpen, cb.GetState())

	now = now.Add(11 * time.Second)
	assert.ErrorIs(t, cb.Call(ctx, func(context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Call(ctx, func(context.Context) error { return nil }), ErrBreakerOpen)
}

func TestCircuitBreaker_CanceledContextNotCounted(t *testing.T) {
	cb := NewCircuitBreaker("geocoder", 1, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())
}
