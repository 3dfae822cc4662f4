package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisLocker uses SET NX with a TTL and a random owner token. The TTL bounds
// how long a crashed holder can block the account.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (Lock, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate lock token: %w", err)
	}
	held := &redisLock{
		client: l.client,
		key:    "lock:" + key,
		value:  hex.EncodeToString(b),
		ttl:    l.ttl,
	}

	ok, err := l.client.SetNX(ctx, held.key, held.value, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", held.key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return held, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// Extend resets the TTL if this holder still owns the key.
func (l *redisLock) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotAcquired
	}
	return nil
}

// Release deletes the key only if this holder still owns it.
func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
