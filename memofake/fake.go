// Package memofake provides an instrumented in-memory store and coordinator
// for tests of code that memoizes through memo.
package memofake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/memo"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpExists Op = "exists"
	OpGet    Op = "get"
	OpSet    Op = "set"
)

// Fake exposes a deterministic in-memory store plus assertion helpers for tests.
// It wraps the memory store so no external services are needed.
type Fake struct {
	store       *countingStore
	coordinator *memo.Coordinator
	counts      map[Op]map[string]int
	failures    map[Op]error
	mu          sync.Mutex
}

// New creates a Fake using an in-memory store. opts configure the coordinator
// returned by Coordinator.
func New(opts ...memo.Option) *Fake {
	f := &Fake{
		counts:   make(map[Op]map[string]int),
		failures: make(map[Op]error),
	}
	f.store = &countingStore{inner: memo.NewMemoryStore(context.Background()), fake: f}
	f.coordinator = memo.New(f.store, opts...)
	return f
}

// Coordinator returns the coordinator to inject into code under test.
func (f *Fake) Coordinator() *memo.Coordinator { return f.coordinator }

// Store returns the instrumented store.
func (f *Fake) Store() memo.Store { return f.store }

// Close stops the coordinator's background refreshes.
func (f *Fake) Close() { f.coordinator.Close() }

// Fail makes every subsequent op return err. A nil err restores the op.
func (f *Fake) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Reset clears recorded counts and injected failures.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
	f.failures = make(map[Op]error)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// AssertUntouched ensures the store saw no operation at all.
func (f *Fake) AssertUntouched(t *testing.T) {
	t.Helper()
	for _, op := range []Op{OpExists, OpGet, OpSet} {
		if got := f.Total(op); got != 0 {
			t.Fatalf("expected store untouched, got %s total=%d", op, got)
		}
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
	return f.failures[op]
}

// countingStore wraps a Store to record calls.
type countingStore struct {
	inner memo.Store
	fake  *Fake
}

func (s *countingStore) Driver() memo.Driver { return s.inner.Driver() }

func (s *countingStore) Ready(ctx context.Context) error { return s.inner.Ready(ctx) }

func (s *countingStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.fake.record(OpExists, key); err != nil {
		return false, err
	}
	return s.inner.Exists(ctx, key)
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.fake.record(OpGet, key); err != nil {
		return nil, false, err
	}
	return s.inner.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := s.fake.record(OpSet, key); err != nil {
		return err
	}
	return s.inner.Set(ctx, key, val, ttl)
}
