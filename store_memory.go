package memo

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore keeps entries in process. Expiry is lazy: an entry past its
// deadline is invisible to Get and removed by the Exists that observes it.
type memoryStore struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
	now        func() time.Time
	// mu orders the expired-check-then-delete in Exists against Set so a fresh
	// write is never removed in place of the stale entry.
	mu sync.Mutex
}

func newMemoryStore(defaultTTL, cleanupInterval time.Duration) *memoryStore {
	if defaultTTL <= 0 {
		defaultTTL = defaultStoreTTL
	}
	return &memoryStore{
		// A non-positive interval leaves the go-cache janitor off.
		cache:      gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *memoryStore) Driver() Driver {
	return DriverMemory
}

func (s *memoryStore) Ready(context.Context) error {
	return nil
}

func (s *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, deadline, found := s.cache.GetWithExpiration(key)
	if !found {
		// go-cache hides expired items; drop the stale slot too.
		s.cache.Delete(key)
		return false, nil
	}
	if !deadline.IsZero() && !s.now().Before(deadline) {
		s.cache.Delete(key)
		return false, nil
	}
	_, ok := item.([]byte)
	return ok, nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, deadline, found := s.cache.GetWithExpiration(key)
	if !found {
		return nil, false, nil
	}
	if !deadline.IsZero() && !s.now().Before(deadline) {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(body), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	s.mu.Lock()
	s.cache.Set(key, clone, ttl)
	s.mu.Unlock()
	return nil
}
