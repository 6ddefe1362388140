package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStateStore(client, time.Minute), mr
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestRedisStateStore_SingleUse(t *testing.T) {
	store, mr := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc"))
	assert.Equal(t, time.Minute, mr.TTL("oauth:state:abc"))

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "state must not be accepted twice")
}

func TestRedisStateStore_UnknownAndEmpty(t *testing.T) {
	store, _ := newTestStateStore(t)

	ok, err := store.Consume(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateStore_Expiry(t *testing.T) {
	store, mr := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc"))
	mr.FastForward(2 * time.Minute)

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateStore_Collision(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc"))
	assert.ErrorIs(t, store.Save(ctx, "abc"), ErrStateCollision)
}

func TestRedisStateStore_RedisDown(t *testing.T) {
	store, mr := newTestStateStore(t)
	mr.Close()

	assert.Error(t, store.Save(context.Background(), "abc"))
	_, err := store.Consume(context.Background(), "abc")
	assert.Error(t, err)
}

func TestNewRedisStateStore_DefaultTTL(t *testing.T) {
	store := NewRedisStateStore(nil, 0)
	assert.Equal(t, DefaultStateTTL, store.ttl)
}
