package memotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goforj/memo/memocore"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "get returns a cloned value" assertion.
	SkipCloneCheck bool
	// TTL controls the expiry duration used in TTL tests.
	TTL time.Duration
	// TTLWait is how long the harness waits for expiry to occur.
	TTLWait time.Duration
}

// Store is the minimal contract required by RunStoreContract.
type Store = memocore.Store

// RunStoreContract runs a backend-agnostic store contract suite.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 50 * time.Millisecond
	}
	wait := opts.TTLWait
	if wait <= 0 {
		wait = 120 * time.Millisecond
	}

	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	// Absent keys.
	if ok, err := store.Exists(ctx, key("absent")); err != nil || ok {
		t.Fatalf("expected absent key to not exist; ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, key("absent")); err != nil || ok {
		t.Fatalf("expected absent key to miss; ok=%v err=%v", ok, err)
	}

	// Set/Get round-trip.
	if err := store.Set(ctx, key("alpha"), []byte("value"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	exists, err := store.Exists(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	body, ok, err := store.Get(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok || exists {
			t.Fatalf("expected miss for null semantics; exists=%v ok=%v", exists, ok)
		}
		return
	}
	if !exists {
		t.Fatalf("expected key to exist after set")
	}
	if !ok || string(body) != "value" {
		t.Fatalf("unexpected get result: ok=%v body=%q err=%v", ok, string(body), err)
	}
	if !opts.SkipCloneCheck {
		body[0] = 'X'
		body2, ok2, err2 := store.Get(ctx, key("alpha"))
		if err2 != nil || !ok2 || string(body2) != "value" {
			t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
		}
	}

	// Overwrite replaces the whole value.
	if err := store.Set(ctx, key("alpha"), []byte("second"), time.Minute); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if body, ok, err := store.Get(ctx, key("alpha")); err != nil || !ok || string(body) != "second" {
		t.Fatalf("expected overwritten value, got ok=%v body=%q err=%v", ok, string(body), err)
	}

	// TTL expiry, observed by both Get and Exists.
	if err := store.Set(ctx, key("ttl"), []byte("v"), ttl); err != nil {
		t.Fatalf("set ttl failed: %v", err)
	}
	if err := waitForMiss(ctx, store, key("ttl"), wait); err != nil {
		t.Fatalf("expected ttl expiry: %v", err)
	}
	if ok, err := store.Exists(ctx, key("ttl")); err != nil || ok {
		t.Fatalf("expected expired key to not exist; ok=%v err=%v", ok, err)
	}

	// A key rewritten after expiry is live again.
	if err := store.Set(ctx, key("ttl"), []byte("again"), time.Minute); err != nil {
		t.Fatalf("set after expiry failed: %v", err)
	}
	if body, ok, err := store.Get(ctx, key("ttl")); err != nil || !ok || string(body) != "again" {
		t.Fatalf("expected rewritten key, got ok=%v body=%q err=%v", ok, string(body), err)
	}

	// Concurrent writers never leave a torn value.
	var wg sync.WaitGroup
	values := []string{"left-value", "right-value"}
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = store.Set(ctx, key("race"), []byte(v), time.Minute)
			}
		}(v)
	}
	wg.Wait()
	body, ok, err = store.Get(ctx, key("race"))
	if err != nil || !ok {
		t.Fatalf("expected race key present; ok=%v err=%v", ok, err)
	}
	if got := string(body); got != values[0] && got != values[1] {
		t.Fatalf("expected one of %v, got %q", values, got)
	}
}

func waitForMiss(ctx context.Context, store Store, key string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		_, ok, err := store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, ok, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("key %q still present after %s", key, wait)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
