// Package lock provides short-lived per-resource mutual exclusion in Redis.
package lock

import (
	"context"
	"fmt"
	"time"

	"ms-venues/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "reservation_lock:"

// Key builds the lock key of a contended resource, e.g. venue or specialist.
func Key(kind, id string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, kind, id)
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another caller is never removed.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{Client: client, TTL: ttl, Logger: log}
}

// Acquire tries once to take the lock. ok is false when another holder has it.
func (r *Redis) Acquire(ctx context.Context, key string) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = r.Client.SetNX(ctx, key, token, r.TTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		r.Logger.Debug("LOCK", fmt.Sprintf("%s is held by another request", key))
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it.
func (r *Redis) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, r.Client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if deleted == 0 {
		r.Logger.Warn("LOCK", fmt.Sprintf("%s expired before release", key))
	}
	return nil
}

// Held reports whether key is currently locked by anyone.
func (r *Redis) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
