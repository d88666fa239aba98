package tlcache

import (
	"context"
	"log/slog"
	"time"
)

// Repository caches translation payloads of type T per (locale, group,
// namespace) triple and tracks every key it writes in a registry, so the
// whole cache can be invalidated without the store enumerating its keys.
//
// Repository is safe for concurrent use. Instances built with the same store
// and prefix derive identical keys and share one registry.
//
// On a SetStore, Put and Flush of the same triple are not serialized: a Flush
// landing between Put's registry add and its value write leaves the value
// live but unregistered until its TTL expires. Locked registries hold the
// lock across both steps and do not have this window.
type Repository[T any] struct {
	store        Store
	prefix       string
	codec        Codec
	registry     *registry
	logger       *slog.Logger
	flushWorkers int
	flushLimiter *RateLimiter
}

type options struct {
	codec        Codec
	locker       Locker
	lock         LockConfig
	logger       *slog.Logger
	flushWorkers int
	flushRate    *RateLimitConfig
}

// Option is a functional option for configuring a Repository.
type Option func(*options)

// WithCodec sets the payload codec (default: JSONCodec).
func WithCodec(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// WithLocker sets the lock guarding registry updates on stores without
// native set commands (default: a process-local MemoryLocker).
func WithLocker(locker Locker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithLockConfig sets the registry lock lease and acquisition backoff.
func WithLockConfig(cfg LockConfig) Option {
	return func(o *options) {
		o.lock = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFlushConcurrency bounds the concurrent deletes issued by FlushAll.
func WithFlushConcurrency(n int) Option {
	return func(o *options) {
		o.flushWorkers = n
	}
}

// WithFlushRate paces the deletes issued by FlushAll, for stores shared
// with latency-sensitive traffic (default: unpaced).
func WithFlushRate(cfg RateLimitConfig) Option {
	return func(o *options) {
		o.flushRate = &cfg
	}
}

// NewRepository creates a repository over store. prefix namespaces both the
// derived keys and the registry address.
func NewRepository[T any](store Store, prefix string, opts ...Option) (*Repository[T], error) {
	if store == nil {
		return nil, &InvalidArgumentError{Field: "store", Message: "must not be nil"}
	}
	if prefix == "" {
		return nil, &InvalidArgumentError{Field: "prefix", Message: "must not be empty"}
	}

	o := options{
		codec:        JSONCodec{},
		lock:         DefaultLockConfig(),
		logger:       slog.New(slog.DiscardHandler),
		flushWorkers: 8,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewMemoryLocker()
	}

	logger := o.logger.With("prefix", prefix)

	repo := &Repository[T]{
		store:        store,
		prefix:       prefix,
		codec:        o.codec,
		registry:     newRegistry(store, RegistryKey(prefix), o.locker, o.lock, logger),
		logger:       logger,
		flushWorkers: o.flushWorkers,
	}
	if o.flushRate != nil {
		repo.flushLimiter = NewRateLimiter(*o.flushRate)
	}
	return repo, nil
}

// Prefix returns the configured key prefix.
func (r *Repository[T]) Prefix() string {
	return r.prefix
}

// RegistryKey returns the store address of this repository's registry.
func (r *Repository[T]) RegistryKey() string {
	return r.registry.key
}

// Key returns the cache key for a triple.
func (r *Repository[T]) Key(locale, group, namespace string) (string, error) {
	if err := validateTriple(locale, group, namespace); err != nil {
		return "", err
	}
	return DeriveKey(r.prefix, locale, group, namespace), nil
}

// Has reports whether Get would return a present value for the triple.
func (r *Repository[T]) Has(ctx context.Context, locale, group, namespace string) (bool, error) {
	key, err := r.Key(locale, group, namespace)
	if err != nil {
		return false, err
	}
	_, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return false, &StoreError{Op: "get", Key: key, Cause: err}
	}
	return ok, nil
}

// Get returns the cached payload for the triple. ok is false when there is
// no entry or it has expired. The registry is not consulted.
func (r *Repository[T]) Get(ctx context.Context, locale, group, namespace string) (T, bool, error) {
	var zero T

	key, err := r.Key(locale, group, namespace)
	if err != nil {
		return zero, false, err
	}

	data, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return zero, false, &StoreError{Op: "get", Key: key, Cause: err}
	}
	if !ok {
		return zero, false, nil
	}

	var value T
	if err := r.codec.Unmarshal(data, &value); err != nil {
		return zero, false, &CodecError{Message: "decoding " + key, Cause: err}
	}
	return value, true, nil
}

// Put caches value for the triple for the given number of minutes.
//
// The key is added to the registry before the value is written: a crash in
// between leaves a registry entry pointing at nothing, which Get and Flush
// treat as absent, rather than a value FlushAll can never find.
func (r *Repository[T]) Put(ctx context.Context, locale, group, namespace string, value T, minutes int) error {
	if minutes <= 0 {
		return &InvalidArgumentError{Field: "minutes", Message: "must be positive"}
	}
	key, err := r.Key(locale, group, namespace)
	if err != nil {
		return err
	}

	data, err := r.codec.Marshal(value)
	if err != nil {
		return &CodecError{Message: "encoding " + key, Cause: err}
	}

	ttl := time.Duration(minutes) * time.Minute
	err = r.registry.add(ctx, key, func() error {
		if err := r.store.Put(ctx, key, data, ttl); err != nil {
			return &StoreError{Op: "put", Key: key, Cause: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "cached translations",
		"locale", locale, "group", group, "namespace", namespace, "key", key, "ttl", ttl)
	return nil
}

// Flush removes the entry for the triple and its registry reference.
// Flushing an absent entry is a no-op.
func (r *Repository[T]) Flush(ctx context.Context, locale, group, namespace string) error {
	key, err := r.Key(locale, group, namespace)
	if err != nil {
		return err
	}

	err = r.registry.remove(ctx, key, func() error {
		if err := r.store.Forget(ctx, key); err != nil {
			return &StoreError{Op: "forget", Key: key, Cause: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "flushed translations",
		"locale", locale, "group", group, "namespace", namespace, "key", key)
	return nil
}

// FlushAll removes every entry tracked by the registry, then drops those keys
// from the registry; the registry itself goes once it is empty. Entries not
// written through this repository are never touched.
//
// If any delete fails the registry is kept, so calling FlushAll again
// finishes the job.
func (r *Repository[T]) FlushAll(ctx context.Context) error {
	flush := func() error {
		keys, err := r.registry.members(ctx)
		if err != nil {
			return err
		}
		if err := forgetAll(ctx, r.store, keys, r.flushWorkers, r.flushLimiter); err != nil {
			return err
		}
		// Only the flushed keys are removed; a key registered while the
		// deletes ran survives even if the lock lease lapsed meanwhile.
		if err := r.registry.prune(ctx, keys); err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "flushed translation cache", "keys", len(keys))
		return nil
	}

	if r.registry.native() {
		return flush()
	}
	return r.registry.locked(ctx, flush)
}

// Keys returns the sorted cache keys currently tracked by the registry.
func (r *Repository[T]) Keys(ctx context.Context) ([]string, error) {
	return r.registry.members(ctx)
}

// putRaw writes already-encoded data through the registry-first path.
func (r *Repository[T]) putRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.registry.add(ctx, key, func() error {
		if err := r.store.Put(ctx, key, data, ttl); err != nil {
			return &StoreError{Op: "put", Key: key, Cause: err}
		}
		return nil
	})
}

// getRaw reads the encoded entry stored under key.
func (r *Repository[T]) getRaw(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Cause: err}
	}
	return data, ok, nil
}
