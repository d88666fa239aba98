package tlcache

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Lines maps translation keys to translated strings for one group.
type Lines = map[string]string

// Loader loads the translation lines of a (locale, group, namespace) triple
// from their source of truth (files, database, ...).
type Loader interface {
	Load(ctx context.Context, locale, group, namespace string) (Lines, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, locale, group, namespace string) (Lines, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, locale, group, namespace string) (Lines, error) {
	return f(ctx, locale, group, namespace)
}

// LoaderStats counts cache outcomes of a CachedLoader.
type LoaderStats struct {
	Hits   int64 // Loads served from the cache
	Misses int64 // Loads delegated to the wrapped loader
}

// CachedLoader is a read-through cache in front of a Loader.
type CachedLoader struct {
	loader  Loader
	repo    *Repository[Lines]
	minutes int
	enabled bool
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// LoaderOption is a functional option for configuring a CachedLoader.
type LoaderOption func(*CachedLoader)

// WithLoaderTTL sets how many minutes loaded lines stay cached (default: 60).
func WithLoaderTTL(minutes int) LoaderOption {
	return func(l *CachedLoader) {
		l.minutes = minutes
	}
}

// WithCacheEnabled toggles caching. A disabled loader never touches the store.
func WithCacheEnabled(enabled bool) LoaderOption {
	return func(l *CachedLoader) {
		l.enabled = enabled
	}
}

// WithLoaderLogger sets the structured logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *CachedLoader) {
		l.logger = logger
	}
}

// NewCachedLoader wraps loader with repo.
func NewCachedLoader(loader Loader, repo *Repository[Lines], opts ...LoaderOption) *CachedLoader {
	l := &CachedLoader{
		loader:  loader,
		repo:    repo,
		minutes: 60,
		enabled: true,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load returns the cached lines for the triple, loading and caching them on
// a miss. A failed cache write is logged and does not fail the load.
func (l *CachedLoader) Load(ctx context.Context, locale, group, namespace string) (Lines, error) {
	if !l.enabled {
		return l.loader.Load(ctx, locale, group, namespace)
	}

	cached, ok, err := l.repo.Get(ctx, locale, group, namespace)
	if err != nil {
		return nil, err
	}
	if ok {
		l.hits.Add(1)
		return cached, nil
	}

	l.misses.Add(1)
	lines, err := l.loader.Load(ctx, locale, group, namespace)
	if err != nil {
		return nil, err
	}

	if err := l.repo.Put(ctx, locale, group, namespace, lines, l.minutes); err != nil {
		l.logger.WarnContext(ctx, "caching translations failed",
			"locale", locale, "group", group, "namespace", namespace, "error", err)
	}

	return lines, nil
}

// Stats returns a snapshot of hit and miss counters.
func (l *CachedLoader) Stats() LoaderStats {
	return LoaderStats{
		Hits:   l.hits.Load(),
		Misses: l.misses.Load(),
	}
}

// Enabled reports whether caching is on.
func (l *CachedLoader) Enabled() bool {
	return l.enabled
}

// Repository returns the underlying cache repository.
func (l *CachedLoader) Repository() *Repository[Lines] {
	return l.repo
}
