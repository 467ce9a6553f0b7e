package memo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

var errRefreshFailed = errors.New("memo: background refresh failed")

// Coordinator memoizes computations into a Store.
//
// A value is computed at most once per key among concurrent callers, kept for
// the policy TTL, and recomputed in the background once the refresh interval
// lapses so warm keys never make a caller wait. Construct one per process and
// pass it to call sites; it is safe for concurrent use.
type Coordinator struct {
	store    Store
	cfg      Config
	logger   *slog.Logger
	observer Observer

	flights singleflight.Group
	flags   *refreshFlags
	pool    *refreshPool
	closed  atomic.Bool
}

// New creates a coordinator bound to store.
// @group Coordinator
//
// Example: coordinator over the memory store
//
//	ctx := context.Background()
//	c := memo.New(memo.NewMemoryStore(ctx))
//	defer c.Close()
//	fmt.Println(c.Driver()) // memory
func New(store Store, opts ...Option) *Coordinator {
	cfg := Config{}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewWithConfig(store, cfg)
}

// NewWithConfig creates a coordinator from an explicit Config.
// A nil store falls back to an in-process memory store.
// @group Coordinator
func NewWithConfig(store Store, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	if store == nil {
		store = newMemoryStore(defaultStoreTTL, 0)
	}
	return &Coordinator{
		store:    store,
		cfg:      cfg,
		logger:   cfg.Logger.With("driver", string(store.Driver())),
		observer: cfg.Observer,
		flags:    newRefreshFlags(cfg.RefreshTimeout),
		pool:     newRefreshPool(cfg.RefreshWorkers, cfg.RefreshQueue),
	}
}

// Store returns the underlying store.
func (c *Coordinator) Store() Store {
	return c.store
}

// Driver reports the underlying store driver.
func (c *Coordinator) Driver() Driver {
	return c.store.Driver()
}

// DefaultPolicy returns the configured default policy.
func (c *Coordinator) DefaultPolicy() Policy {
	return c.cfg.DefaultPolicy
}

// Enabled reports the current state of the caching switch.
func (c *Coordinator) Enabled() bool {
	return c.cfg.Enabled()
}

// RefreshStats reports background refresh activity.
func (c *Coordinator) RefreshStats() RefreshStats {
	return c.pool.stats()
}

// Close stops scheduling background refreshes. Refreshes already running are
// not awaited and may or may not land in the store.
func (c *Coordinator) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.close()
}

// lookup checks the store for a live entry. Errors are reported and returned
// so the caller can fall back to direct execution.
func (c *Coordinator) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		return nil, false, c.storeFailed(ctx, "exists", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	body, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, c.storeFailed(ctx, "get", key, err)
	}
	return body, ok, nil
}

// write stores payload and re-arms the refresh marker.
func (c *Coordinator) write(ctx context.Context, cacheKey string, payload []byte, policy Policy) error {
	if err := c.store.Set(ctx, cacheKey, payload, policy.TTL); err != nil {
		return c.storeFailed(ctx, "set", cacheKey, err)
	}
	if policy.RefreshAfter > 0 {
		refreshKey := RefreshKey(cacheKey)
		if err := c.store.Set(ctx, refreshKey, refreshSentinel, policy.RefreshAfter); err != nil {
			return c.storeFailed(ctx, "set", refreshKey, err)
		}
	}
	c.flags.ensure(cacheKey)
	return nil
}

// scheduleRefresh queues a background recomputation when the refresh marker
// has lapsed and no refresh for the key is in flight.
func (c *Coordinator) scheduleRefresh(ctx context.Context, cacheKey string, policy Policy, produce func(context.Context) ([]byte, error)) {
	if policy.RefreshAfter <= 0 || c.closed.Load() {
		return
	}
	refreshKey := RefreshKey(cacheKey)
	marked, err := c.store.Exists(ctx, refreshKey)
	if err != nil {
		_ = c.storeFailed(ctx, "exists", refreshKey, err)
		return
	}
	if marked {
		return
	}
	token, ok := c.flags.tryAcquire(cacheKey)
	if !ok {
		return
	}

	detached := context.WithoutCancel(ctx)
	err = c.pool.submit(refreshTask{
		Key: cacheKey,
		Run: func() error {
			defer c.flags.release(cacheKey, token)
			return c.refresh(detached, cacheKey, policy, produce)
		},
		Drop: func() { c.flags.release(cacheKey, token) },
	})
	if err != nil {
		c.flags.release(cacheKey, token)
		c.logger.DebugContext(ctx, "refresh not scheduled", "key", cacheKey, "error", err)
		c.observe(ctx, OpRefreshSkipped, cacheKey, true, err, time.Now())
	}
}

// refresh recomputes cacheKey. It shares the key's flight so a caller that
// misses while the refresh runs waits for it instead of computing again.
// Failures leave the cached value untouched and are tagged errRefreshFailed so
// joined callers run their own computation instead of inheriting them.
func (c *Coordinator) refresh(ctx context.Context, cacheKey string, policy Policy, produce func(context.Context) ([]byte, error)) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefreshTimeout)
	defer cancel()

	shared, err, _ := c.flights.Do(cacheKey, func() (any, error) {
		payload, err := produce(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errRefreshFailed, err)
		}
		if payload == nil {
			return flightResult{}, nil
		}
		if err := c.write(ctx, cacheKey, payload, policy); err != nil {
			return flightResult{body: payload}, nil
		}
		return flightResult{body: payload, stored: true}, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "background refresh failed; keeping cached value", "key", cacheKey, "error", err)
		c.observe(ctx, OpRefresh, cacheKey, false, err, start)
		return err
	}
	// hit reports whether the refreshed value reached the store.
	res, _ := shared.(flightResult)
	c.observe(ctx, OpRefresh, cacheKey, res.stored, nil, start)
	return nil
}

func (c *Coordinator) storeFailed(ctx context.Context, op, key string, err error) error {
	wrapped := &StoreError{Op: op, Driver: c.store.Driver(), Key: key, Err: err}
	c.logger.WarnContext(ctx, "store unavailable; computing directly", "op", op, "key", key, "error", err)
	c.observe(ctx, OpStoreError, key, false, wrapped, time.Now())
	return wrapped
}

func (c *Coordinator) observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.OnCacheOp(ctx, op, key, hit, err, time.Since(start), c.store.Driver())
}
