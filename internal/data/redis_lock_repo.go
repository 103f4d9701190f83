package data

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-genstudio/internal/core"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockRepo implements core.DistributedLock with Redis SET NX PX.
type RedisLockRepo struct {
	client redis.UniversalClient
	prefix string
}

var _ core.DistributedLock = (*RedisLockRepo)(nil)

// NewRedisLockRepo creates a lock repository. Keys are namespaced with prefix.
func NewRedisLockRepo(client redis.UniversalClient, prefix string) *RedisLockRepo {
	if prefix == "" {
		prefix = "genstudio:lock:"
	}
	return &RedisLockRepo{client: client, prefix: prefix}
}

// TryLock atomically acquires key for ttl.
func (r *RedisLockRepo) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrLockKeyRequired
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	token, err := newLockToken()
	if err != nil {
		return "", false, err
	}

	// SET with NX + TTL in one command; SETNX followed by EXPIRE is not atomic.
	status, err := r.client.SetArgs(ctx, r.prefix+key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis SET NX: %w", err)
	}
	return token, status == "OK", nil
}

// Unlock releases key if token still owns it. Releasing a lock that expired is not an error.
func (r *RedisLockRepo) Unlock(ctx context.Context, key, token string) error {
	if key == "" {
		return ErrLockKeyRequired
	}
	if err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err(); err != nil &&
		!errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release lock: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (r *RedisLockRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
