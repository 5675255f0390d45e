package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKey(t *testing.T) {
	assert.Equal(t, "forgotten_trip:config", Key("forgotten_trip", "config"))
	assert.Equal(t, "a:b", Key("", "a", "", "b"))
	assert.Equal(t, "", Key())
}

func TestBadgerStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, s.Remove(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// 删除不存在的键不报错
	require.NoError(t, s.Remove(ctx, "k"))
}

func TestBadgerStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetJSON(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var got payload
	ok, err := GetJSON(ctx, s, "p", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, "p", payload{Name: "maison", Count: 2}))
	ok, err = GetJSON(ctx, s, "p", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "maison", Count: 2}, got)

	require.NoError(t, s.Set(ctx, "p", []byte("{not json")))
	ok, err = GetJSON(ctx, s, "p", &got)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
