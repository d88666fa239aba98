package tlcache

import (
	"context"
	"time"
)

// Store is the flat key-value contract the repository is a client of.
// Each method must be atomic for its single key. Stores are not expected to
// enumerate or pattern-match their keys.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss or
	// expiry. Transport failures return a non-nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key for ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Forever stores value under key with no expiry.
	Forever(ctx context.Context, key string, value []byte) error

	// Forget deletes key. Deleting an absent key is not an error.
	Forget(ctx context.Context, key string) error
}

// SetStore is implemented by stores that offer atomic set membership
// commands. When the repository's store implements it, registry updates are
// single store commands and no lock is taken.
//
// Sets never expire, and removing the last member must remove the set.
type SetStore interface {
	AddMember(ctx context.Context, key, member string) error
	RemoveMember(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
}

// Locker guards the registry's read-modify-write sequence for stores that
// are not a SetStore.
type Locker interface {
	// TryLock makes a single acquisition attempt. ok is false when the lock
	// is held by someone else.
	TryLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)

	// Unlock releases the lock if token still owns it.
	Unlock(ctx context.Context, name, token string) error
}
