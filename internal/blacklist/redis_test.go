package blacklist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedis(rdb, ""), mr
}

func TestRedisAddContains(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Add(ctx, "tok-1", time.Now().Add(time.Hour)))

	ok, err := store.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Contains(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists(defaultRedisPrefix+Key("tok-1")))
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(time.Minute)))

	mr.FastForward(2 * time.Minute)

	ok, err := store.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKeepsLongerTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(time.Hour)))
	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(time.Minute)))

	assert.Greater(t, mr.TTL(defaultRedisPrefix+Key("tok")), 30*time.Minute)
}

func TestRedisConcurrentAddKeepsLongestTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// one writer asks for an hour, the rest for a minute
			ttl := time.Minute
			if i == 7 {
				ttl = time.Hour
			}

			assert.NoError(t, store.Add(ctx, "tok", time.Now().Add(ttl)))
		}()
	}

	wg.Wait()

	assert.Greater(t, mr.TTL(defaultRedisPrefix+Key("tok")), 30*time.Minute)
}

func TestRedisShorterTTLOnMissingKeyIsSet(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(time.Minute)))

	ttl := mr.TTL(defaultRedisPrefix + Key("tok"))
	assert.Greater(t, ttl, 30*time.Second)
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisPastExpiryIsNoop(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Add(ctx, "tok", time.Now().Add(-time.Minute)))
	assert.Empty(t, mr.Keys())
}

func TestRedisBackendFailure(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	mr.Close()

	_, err := store.Contains(ctx, "tok")
	require.ErrorIs(t, err, ErrBackend)

	err = store.Add(ctx, "tok", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrBackend)
}
