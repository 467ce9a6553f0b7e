package memo

import (
	"context"
	"fmt"
	"time"
)

// Future is the pending result of an asynchronous operation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Async runs fn on its own goroutine and returns its Future. A panic in fn is
// reported as the Future's error.
// @group Async
func Async[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("memo: async operation panicked: %v", r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends. Abandoning a Future
// does not cancel the operation behind it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetOrComputeAsync starts GetOrComputeCtx without blocking the caller.
// @group Async
//
// Example: await a memoized value
//
//	ctx := context.Background()
//	c := memo.New(memo.NewMemoryStore(ctx))
//	future := memo.GetOrComputeAsync(ctx, c, "greeter.Hello", "World", memo.DefaultPolicy(),
//		func(context.Context) (string, error) { return "Hello World", nil },
//	)
//	greeting, _ := future.Await(ctx)
//	fmt.Println(greeting) // Hello World
func GetOrComputeAsync[T any](ctx context.Context, c *Coordinator, identity string, params any, policy Policy, fn func(context.Context) (T, error)) *Future[T] {
	return Async(func() (T, error) {
		return GetOrComputeCtx(ctx, c, identity, params, policy, fn)
	})
}

// AsyncStore exposes the asynchronous form of a Store. Every call runs the
// synchronous operation on its own goroutine.
type AsyncStore struct {
	store Store
}

// NewAsyncStore wraps store.
// @group Async
func NewAsyncStore(store Store) AsyncStore {
	return AsyncStore{store: store}
}

// ExistsAsync reports whether a live entry exists for key.
func (a AsyncStore) ExistsAsync(ctx context.Context, key string) *Future[bool] {
	return Async(func() (bool, error) {
		return a.store.Exists(ctx, key)
	})
}

// GetAsync reads key. An absent or expired key resolves to ErrCacheMiss.
func (a AsyncStore) GetAsync(ctx context.Context, key string) *Future[[]byte] {
	return Async(func() ([]byte, error) {
		body, ok, err := a.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCacheMiss
		}
		return body, nil
	})
}

// SetAsync writes value under key for ttl.
func (a AsyncStore) SetAsync(ctx context.Context, key string, value []byte, ttl time.Duration) *Future[struct{}] {
	return Async(func() (struct{}, error) {
		return struct{}{}, a.store.Set(ctx, key, value, ttl)
	})
}
