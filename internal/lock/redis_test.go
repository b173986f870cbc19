package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"ms-venues/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, 5*time.Second, logger.Discard()), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reservation_lock:venue:v1", Key("venue", "v1"))
}

func TestAcquireIsExclusive(t *testing.T) {
	l, mr := setupTestRedis(t)
	ctx := context.Background()
	key := Key("venue", "v1")

	token, ok, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 5*time.Second, mr.TTL(key))

	_, ok, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := l.Held(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Release(ctx, key, token))
	assert.False(t, mr.Exists(key))

	_, ok, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseWithStaleTokenKeepsNewHolder(t *testing.T) {
	l, mr := setupTestRedis(t)
	ctx := context.Background()
	key := Key("specialist", "s1")

	stale, ok, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)
	assert.False(t, mr.Exists(key))

	_, ok, err = l.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, key, stale))
	assert.True(t, mr.Exists(key), "stale release must not drop the new lock")
}

func TestConcurrentAcquireHasOneWinner(t *testing.T) {
	l, _ := setupTestRedis(t)
	ctx := context.Background()
	key := Key("venue", "busy")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := l.Acquire(ctx, key)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAcquireFailsWhenRedisDown(t *testing.T) {
	l, mr := setupTestRedis(t)
	mr.Close()

	_, ok, err := l.Acquire(context.Background(), Key("venue", "v1"))
	assert.Error(t, err)
	assert.False(t, ok)
}
