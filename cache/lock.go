package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only if it still holds the caller's token,
// so a holder whose lease expired cannot release someone else's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a cross-process lock on Redis (SET NX PX with a random
// token, released with a compare-and-delete script).
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	newToken  func() string
}

// NewRedisLocker creates a locker whose lock keys are keyPrefix + name + ":lock".
func NewRedisLocker(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: keyPrefix,
		newToken:  uuid.NewString,
	}
}

func (l *RedisLocker) lockKey(name string) string {
	return l.keyPrefix + name + ":lock"
}

// TryLock makes one acquisition attempt.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, l.lockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases the lock if token still owns it.
func (l *RedisLocker) Unlock(ctx context.Context, name, token string) error {
	return unlockScript.Run(ctx, l.client, []string{l.lockKey(name)}, token).Err()
}
