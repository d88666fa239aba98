package tlcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
)

// registry maintains the set of live cache keys under a single store entry.
//
// With a SetStore every update is one atomic store command. Otherwise each
// update is a read-modify-write of a JSON array, run while holding the
// registry lock.
type registry struct {
	store  Store
	sets   SetStore
	key    string
	locker Locker
	lock   LockConfig
	logger *slog.Logger
}

func newRegistry(store Store, key string, locker Locker, lock LockConfig, logger *slog.Logger) *registry {
	r := &registry{
		store:  store,
		key:    key,
		locker: locker,
		lock:   lock,
		logger: logger,
	}
	if sets, ok := store.(SetStore); ok {
		r.sets = sets
	}
	return r
}

// native reports whether updates use the store's atomic set commands.
func (r *registry) native() bool {
	return r.sets != nil
}

// add records member, then runs write. On the locked path write runs before
// the lock is released, so a Flush of the same key cannot fall between the
// registry update and the value write.
func (r *registry) add(ctx context.Context, member string, write func() error) error {
	if r.native() {
		if err := r.sets.AddMember(ctx, r.key, member); err != nil {
			return &StoreError{Op: "add-member", Key: r.key, Cause: err}
		}
		return write()
	}

	return r.locked(ctx, func() error {
		members, err := r.read(ctx)
		if err != nil {
			return err
		}
		if !slices.Contains(members, member) {
			if err := r.write(ctx, append(members, member)); err != nil {
				return err
			}
		}
		return write()
	})
}

// remove runs forget, then drops member from the registry. On the locked
// path both happen under the lock.
func (r *registry) remove(ctx context.Context, member string, forget func() error) error {
	if r.native() {
		if err := forget(); err != nil {
			return err
		}
		return r.prune(ctx, []string{member})
	}

	return r.locked(ctx, func() error {
		if err := forget(); err != nil {
			return err
		}
		return r.prune(ctx, []string{member})
	})
}

// prune drops members from the registry. Members that are not present are
// ignored, and a registry left empty is deleted. The locked path rereads the
// registry first, so members added since the caller's snapshot are kept;
// it must run inside locked.
func (r *registry) prune(ctx context.Context, members []string) error {
	if len(members) == 0 {
		return nil
	}
	if r.native() {
		if err := r.sets.RemoveMember(ctx, r.key, members...); err != nil {
			return &StoreError{Op: "remove-member", Key: r.key, Cause: err}
		}
		return nil
	}

	current, err := r.read(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(current), func(k string) bool {
		return slices.Contains(members, k)
	})
	if len(kept) == len(current) {
		return nil
	}
	if len(kept) == 0 {
		if err := r.store.Forget(ctx, r.key); err != nil {
			return &StoreError{Op: "forget", Key: r.key, Cause: err}
		}
		return nil
	}
	return r.write(ctx, kept)
}

// members returns the sorted registry contents. An absent registry is empty.
func (r *registry) members(ctx context.Context) ([]string, error) {
	if r.native() {
		members, err := r.sets.Members(ctx, r.key)
		if err != nil {
			return nil, &StoreError{Op: "members", Key: r.key, Cause: err}
		}
		slices.Sort(members)
		return members, nil
	}
	return r.read(ctx)
}

// locked runs fn while holding the registry lock.
func (r *registry) locked(ctx context.Context, fn func() error) error {
	token, err := acquireLock(ctx, r.locker, r.key, r.lock)
	if err != nil {
		return err
	}
	defer func() {
		// A failed release only delays others until the lease expires.
		if err := r.locker.Unlock(context.WithoutCancel(ctx), r.key, token); err != nil {
			r.logger.WarnContext(ctx, "registry unlock failed", "registry", r.key, "error", err)
		}
	}()
	return fn()
}

func (r *registry) read(ctx context.Context) ([]string, error) {
	data, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, &StoreError{Op: "get", Key: r.key, Cause: err}
	}
	if !ok {
		return nil, nil
	}

	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, &CodecError{Message: "decoding registry " + r.key, Cause: err}
	}
	return members, nil
}

// write stores the registry with no expiry; an expiring registry would let
// FlushAll silently skip live keys.
func (r *registry) write(ctx context.Context, members []string) error {
	members = slices.Compact(slices.Sorted(slices.Values(members)))
	if members == nil {
		members = []string{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return &CodecError{Message: "encoding registry " + r.key, Cause: err}
	}
	if err := r.store.Forever(ctx, r.key, data); err != nil {
		return &StoreError{Op: "forever", Key: r.key, Cause: err}
	}
	return nil
}
