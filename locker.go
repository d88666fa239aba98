package tlcache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	token   string
	expires time.Time // zero means the lease never expires
}

// MemoryLocker is an in-process Locker. It serializes registry updates
// between goroutines sharing one process, but not across processes; use a
// distributed Locker (see cache.RedisLocker) for that.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock func() time.Time
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryLease),
		clock: time.Now,
	}
}

// TryLock implements Locker.
func (l *MemoryLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lease, ok := l.held[name]; ok {
		if lease.expires.IsZero() || now.Before(lease.expires) {
			return "", false, nil
		}
	}

	lease := memoryLease{token: uuid.NewString()}
	if ttl > 0 {
		lease.expires = now.Add(ttl)
	}
	l.held[name] = lease
	return lease.token, true, nil
}

// Unlock implements Locker. Releasing with a stale token is a no-op.
func (l *MemoryLocker) Unlock(ctx context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, ok := l.held[name]; ok && lease.token == token {
		delete(l.held, name)
	}
	return nil
}

var _ Locker = (*MemoryLocker)(nil)
