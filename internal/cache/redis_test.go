package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Percent int    `json:"percent"`
	Node    string `json:"node"`
}

func newTestMirror(t *testing.T, ttl time.Duration) (*RedisMirror[payload], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := NewRedisMirrorFromClient[payload](client, "", ttl)
	t.Cleanup(func() { m.Close() })
	return m, mr
}

func TestRedisMirror_RoundTrip(t *testing.T) {
	m, mr := newTestMirror(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, m.Ping(ctx))

	in := Entry[payload]{
		Value:       payload{Percent: 55, Node: "车缝"},
		HasValue:    true,
		TriggeredAt: base,
		StoredAt:    base.Add(time.Second),
	}
	require.NoError(t, m.Publish(ctx, "PO-1", in))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"PO-1"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultKeyPrefix+"PO-1"))

	out, found, err := m.Fetch(ctx, "PO-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in.Value, out.Value)
	assert.True(t, out.HasValue)
	assert.True(t, out.TriggeredAt.Equal(base))
	assert.False(t, out.Failed())
}

func TestRedisMirror_FailureMarker(t *testing.T) {
	m, _ := newTestMirror(t, 0)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "PO-1", Entry[payload]{Err: errors.New("upstream down"), TriggeredAt: base}))
	out, found, err := m.Fetch(ctx, "PO-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, out.HasValue)
	require.True(t, out.Failed())
	assert.Equal(t, "upstream down", out.Err.Error())
}

func TestRedisMirror_Missing(t *testing.T) {
	m, _ := newTestMirror(t, time.Minute)
	_, found, err := m.Fetch(context.Background(), "PO-404")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisMirror_Expiry(t *testing.T) {
	m, mr := newTestMirror(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, "PO-1", Entry[payload]{HasValue: true, TriggeredAt: base}))

	mr.FastForward(2 * time.Minute)
	_, found, err := m.Fetch(ctx, "PO-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisMirror_BadURL(t *testing.T) {
	_, err := NewRedisMirror[payload]("not a url", "", 0)
	require.Error(t, err)
}

func TestNewRedisMirror_FromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := NewRedisMirror[payload]("redis://"+mr.Addr()+"/0", "test:", time.Minute)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Publish(context.Background(), "PO-1", Entry[payload]{HasValue: true, TriggeredAt: base}))
	assert.True(t, mr.Exists("test:PO-1"))
}
