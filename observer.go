package memo

import (
	"context"
	"time"
)

// Operation names reported to an Observer.
const (
	// OpGetOrCompute is reported once per coordinator call; hit is true when a
	// stored value was served.
	OpGetOrCompute = "get_or_compute"
	// OpCompute is reported for every foreground execution of a computation.
	OpCompute = "compute"
	// OpRefresh is reported when a background refresh finishes.
	OpRefresh = "refresh"
	// OpRefreshSkipped is reported when a due refresh could not be queued.
	OpRefreshSkipped = "refresh_skipped"
	// OpStoreError is reported when the store fails and the call falls back to direct execution.
	OpStoreError = "store_error"
)

// Observer receives events for coordinator operations.
// Callbacks may run on background refresh workers and must not block.
type Observer interface {
	OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver)

// OnCacheOp implements Observer.
func (f ObserverFunc) OnCacheOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration, driver Driver) {
	if f == nil {
		return
	}
	f(ctx, op, key, hit, err, dur, driver)
}
