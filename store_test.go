package tlcache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ZaguanLabs/tlcache/cache"
)

var errUnavailable = errors.New("connection refused")

// setStore is a MemoryStore with atomic set commands.
type setStore struct {
	*cache.MemoryStore
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func newSetStore() *setStore {
	return &setStore{
		MemoryStore: cache.NewMemoryStore(),
		sets:        make(map[string]map[string]struct{}),
	}
}

func (s *setStore) AddMember(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]struct{})
	}
	s.sets[key][member] = struct{}{}
	return nil
}

func (s *setStore) RemoveMember(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.sets[key], m)
	}
	if len(s.sets[key]) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *setStore) Members(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for m := range s.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *setStore) hasSet(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[key]
	return ok
}

// recordingStore records every operation and can fail selected ones.
type recordingStore struct {
	Store
	mu      sync.Mutex
	ops     []string
	failOn  map[string]bool // "get", "put", "forever", "forget"
	failKey string          // when set, only operations on this key fail
}

func newRecordingStore(inner Store) *recordingStore {
	return &recordingStore{Store: inner, failOn: map[string]bool{}}
}

func (s *recordingStore) record(op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op+":"+key)
	if s.failOn[op] && (s.failKey == "" || s.failKey == key) {
		return errUnavailable
	}
	return nil
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.record("get", key); err != nil {
		return nil, false, err
	}
	return s.Store.Get(ctx, key)
}

func (s *recordingStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.record("put", key); err != nil {
		return err
	}
	return s.Store.Put(ctx, key, value, ttl)
}

func (s *recordingStore) Forever(ctx context.Context, key string, value []byte) error {
	if err := s.record("forever", key); err != nil {
		return err
	}
	return s.Store.Forever(ctx, key, value)
}

func (s *recordingStore) Forget(ctx context.Context, key string) error {
	if err := s.record("forget", key); err != nil {
		return err
	}
	return s.Store.Forget(ctx, key)
}

func (s *recordingStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

var (
	_ Store    = (*cache.MemoryStore)(nil)
	_ Store    = (*cache.RedisStore)(nil)
	_ SetStore = (*cache.RedisStore)(nil)
	_ Store    = (*cache.SQLStore)(nil)
	_ Locker   = (*cache.RedisLocker)(nil)
	_ SetStore = (*setStore)(nil)
)
