package memo

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func TestRefreshPoolRunsTasks(t *testing.T) {
	pool := newRefreshPool(2, 8)
	defer pool.close()

	var ran atomic.Int64
	for i := 0; i < 4; i++ {
		if err := pool.submit(refreshTask{Key: "k", Run: func() error { ran.Add(1); return nil }}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := pool.submit(refreshTask{Key: "bad", Run: func() error { return errors.New("boom") }}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := pool.submit(refreshTask{Key: "panic", Run: func() error { panic("refresh exploded") }}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		s := pool.stats()
		return s.Completed == 4 && s.Failed == 2
	})
	if ran.Load() != 4 {
		t.Fatalf("expected 4 runs, got %d", ran.Load())
	}
	stats := pool.stats()
	if stats.Workers != 2 || stats.Submitted != 6 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRefreshPoolQueueFull(t *testing.T) {
	pool := newRefreshPool(1, 1)
	defer pool.close()

	block := make(chan struct{})
	started := make(chan struct{})
	if err := pool.submit(refreshTask{Run: func() error { close(started); <-block; return nil }}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started
	if err := pool.submit(refreshTask{Run: func() error { return nil }}); err != nil {
		t.Fatalf("expected queued submit, got %v", err)
	}
	if err := pool.submit(refreshTask{Run: func() error { return nil }}); !errors.Is(err, errRefreshQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	close(block)
	if pool.stats().Dropped != 1 {
		t.Fatalf("expected one dropped task, got %+v", pool.stats())
	}
}

func TestRefreshPoolCloseDropsQueued(t *testing.T) {
	pool := newRefreshPool(1, 4)
	block := make(chan struct{})
	started := make(chan struct{})
	_ = pool.submit(refreshTask{Run: func() error { close(started); <-block; return nil }})
	<-started

	var dropped atomic.Int64
	for i := 0; i < 3; i++ {
		_ = pool.submit(refreshTask{Run: func() error { return nil }, Drop: func() { dropped.Add(1) }})
	}
	pool.close()
	close(block)

	if dropped.Load() != 3 {
		t.Fatalf("expected queued tasks dropped on close, got %d", dropped.Load())
	}
	if err := pool.submit(refreshTask{Run: func() error { return nil }}); !errors.Is(err, errRefreshPoolClosed) {
		t.Fatalf("expected closed pool error, got %v", err)
	}
	pool.close()
}
