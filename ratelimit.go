package tlcache

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures the pace of FlushAll deletes.
type RateLimitConfig struct {
	PerSecond int // Sustained deletes per second (default: 100)
	BurstSize int // Deletes allowed back to back (default: PerSecond)
}

// RateLimiter is a token bucket shared by the FlushAll workers.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
	clock    func() time.Time
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	perSec := float64(cfg.PerSecond)
	if perSec <= 0 {
		perSec = 100
	}
	capacity := float64(cfg.BurstSize)
	if capacity <= 0 {
		capacity = perSec
	}

	l := &RateLimiter{
		capacity: capacity,
		tokens:   capacity,
		perSec:   perSec,
		clock:    time.Now,
	}
	l.last = l.clock()
	return l
}

// Wait blocks until a delete may proceed or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		ok, delay := l.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token if one is available.
func (l *RateLimiter) TryAcquire() bool {
	ok, _ := l.reserve()
	return ok
}

// Available returns the number of tokens currently in the bucket.
func (l *RateLimiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.tokens
}

// reserve takes a token if one is available. Otherwise it reports how long
// until the next token is due.
func (l *RateLimiter) reserve() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	missing := 1 - l.tokens
	return false, max(time.Millisecond, time.Duration(missing/l.perSec*float64(time.Second)))
}

// advance credits tokens for the time since the last call. Caller holds mu.
func (l *RateLimiter) advance() {
	now := l.clock()
	l.tokens = min(l.capacity, l.tokens+now.Sub(l.last).Seconds()*l.perSec)
	l.last = now
}
