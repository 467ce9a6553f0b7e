package memo

import (
	"sync"
	"sync/atomic"
	"time"
)

// refreshFlags tracks at most one in-flight background refresh per key.
//
// A flag holds the start time (unix nanos) of the refresh that owns it; zero is
// idle. A flag older than timeout is considered abandoned and can be taken over,
// so a refresh that never returns cannot block a key forever. Entries live as
// long as the coordinator.
type refreshFlags struct {
	flags   sync.Map // key -> *atomic.Int64
	timeout time.Duration
	now     func() time.Time
}

func newRefreshFlags(timeout time.Duration) *refreshFlags {
	return &refreshFlags{timeout: timeout, now: time.Now}
}

func (f *refreshFlags) flag(key string) *atomic.Int64 {
	if existing, ok := f.flags.Load(key); ok {
		return existing.(*atomic.Int64)
	}
	actual, _ := f.flags.LoadOrStore(key, new(atomic.Int64))
	return actual.(*atomic.Int64)
}

// ensure registers key as idle unless a refresh already owns it.
func (f *refreshFlags) ensure(key string) {
	f.flag(key)
}

// tryAcquire marks key as refreshing. It returns the ownership token, or false
// when another live refresh owns the key.
func (f *refreshFlags) tryAcquire(key string) (int64, bool) {
	flag := f.flag(key)
	now := f.now().UnixNano()
	current := flag.Load()
	if current != 0 && time.Duration(now-current) < f.timeout {
		return 0, false
	}
	if now == current {
		now++
	}
	if !flag.CompareAndSwap(current, now) {
		return 0, false
	}
	return now, true
}

// release returns key to idle if token still owns it.
func (f *refreshFlags) release(key string, token int64) {
	if existing, ok := f.flags.Load(key); ok {
		existing.(*atomic.Int64).CompareAndSwap(token, 0)
	}
}

func (f *refreshFlags) refreshing(key string) bool {
	existing, ok := f.flags.Load(key)
	return ok && existing.(*atomic.Int64).Load() != 0
}
