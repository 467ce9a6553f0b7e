package memo

import (
	"context"
	"errors"
	"time"
)

// flightResult is shared by every caller joined on one key's flight. computed
// marks a result produced by a foreground computation; value then holds it
// as returned, which may be a nil interface. Callers of another type decode
// body instead. A background refresh shares body only.
type flightResult struct {
	value    any
	computed bool
	body     []byte
	cached   bool
	stored   bool
}

// maxFlightJoins bounds how often a miss re-enters the key's flight after
// joining one that could not serve it.
const maxFlightJoins = 3

// GetOrCompute returns the memoized result of fn for identity and params,
// computing and storing it on a miss. Values are stored as JSON.
// @group Memoization
//
// Example: memoize a lookup
//
//	c := memo.New(memo.NewMemoryStore(context.Background()))
//	defer c.Close()
//	greeting, _ := memo.GetOrCompute(c, "greeter.Hello", "World", memo.DefaultPolicy(), func() (string, error) {
//		return "Hello World", nil
//	})
//	fmt.Println(greeting) // Hello World
func GetOrCompute[T any](c *Coordinator, identity string, params any, policy Policy, fn func() (T, error)) (T, error) {
	if fn == nil {
		var zero T
		return zero, ErrNilComputation
	}
	return GetOrComputeCtx(context.Background(), c, identity, params, policy, func(context.Context) (T, error) {
		return fn()
	})
}

// GetOrComputeCtx is GetOrCompute with a context. ctx bounds the store calls and
// is passed to fn on a miss; background refreshes run detached from its
// cancellation.
// @group Memoization
func GetOrComputeCtx[T any](ctx context.Context, c *Coordinator, identity string, params any, policy Policy, fn func(context.Context) (T, error)) (T, error) {
	return GetOrComputeWithCodec(ctx, c, identity, params, policy, fn, JSONCodec[T]())
}

// GetOrComputeWithCodec is GetOrComputeCtx with an explicit value codec.
// @group Memoization
//
// Example: store raw bytes
//
//	ctx := context.Background()
//	c := memo.New(memo.NewMemoryStore(ctx))
//	body, _ := memo.GetOrComputeWithCodec(ctx, c, "assets.Logo", "png", memo.DefaultPolicy(),
//		func(context.Context) ([]byte, error) { return os.ReadFile("logo.png") },
//		memo.BytesCodec(),
//	)
//	_ = body
func GetOrComputeWithCodec[T any](ctx context.Context, c *Coordinator, identity string, params any, policy Policy, fn func(context.Context) (T, error), codec Codec[T]) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilComputation
	}
	start := time.Now()
	cacheKey, err := DeriveKey(identity, params)
	if err != nil {
		c.observe(ctx, OpGetOrCompute, identity, false, err, start)
		return zero, err
	}
	if !c.Enabled() || policy.TTL <= 0 {
		return computeDirect(ctx, c, cacheKey, fn, start)
	}

	body, ok, err := c.lookup(ctx, cacheKey)
	if err != nil {
		return computeDirect(ctx, c, cacheKey, fn, start)
	}
	if ok {
		value, err := codec.Decode(body)
		if err != nil {
			_ = c.storeFailed(ctx, "decode", cacheKey, err)
			return computeDirect(ctx, c, cacheKey, fn, start)
		}
		c.scheduleRefresh(ctx, cacheKey, policy, encodeResult(fn, codec))
		c.observe(ctx, OpGetOrCompute, cacheKey, true, nil, start)
		return value, nil
	}

	for attempt := 0; attempt < maxFlightJoins; attempt++ {
		shared, err, _ := c.flights.Do(cacheKey, func() (any, error) {
			return populate(ctx, c, cacheKey, policy, fn, codec)
		})
		if errors.Is(err, errRefreshFailed) {
			// A failing background refresh owned the flight; run our own.
			continue
		}
		if err != nil {
			c.observe(ctx, OpGetOrCompute, cacheKey, false, err, start)
			return zero, err
		}
		res := shared.(flightResult)
		if res.computed {
			if res.value == nil {
				c.observe(ctx, OpGetOrCompute, cacheKey, res.cached, nil, start)
				return zero, nil
			}
			if value, ok := res.value.(T); ok {
				c.observe(ctx, OpGetOrCompute, cacheKey, res.cached, nil, start)
				return value, nil
			}
		}
		if res.body == nil {
			// An empty result under another type or from a refresh; nothing to share.
			continue
		}
		value, err := codec.Decode(res.body)
		if err != nil {
			_ = c.storeFailed(ctx, "decode", cacheKey, err)
			return computeDirect(ctx, c, cacheKey, fn, start)
		}
		c.observe(ctx, OpGetOrCompute, cacheKey, res.cached, nil, start)
		return value, nil
	}
	return computeDirect(ctx, c, cacheKey, fn, start)
}

// GetOrComputeBytes memoizes a computation producing raw bytes. A zero-length
// result is returned but never stored.
// @group Memoization
func (c *Coordinator) GetOrComputeBytes(identity string, params any, policy Policy, fn func() ([]byte, error)) ([]byte, error) {
	if fn == nil {
		return nil, ErrNilComputation
	}
	return c.GetOrComputeBytesCtx(context.Background(), identity, params, policy, func(context.Context) ([]byte, error) {
		return fn()
	})
}

// GetOrComputeBytesCtx is GetOrComputeBytes with a context.
// @group Memoization
func (c *Coordinator) GetOrComputeBytesCtx(ctx context.Context, identity string, params any, policy Policy, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	return GetOrComputeWithCodec(ctx, c, identity, params, policy, fn, BytesCodec())
}

// GetOrComputeString memoizes a computation producing a string. The empty
// string is returned but never stored.
// @group Memoization
//
// Example: memoize a string
//
//	c := memo.New(memo.NewMemoryStore(context.Background()))
//	s, _ := c.GetOrComputeString("greeter.Hello", "World", memo.DefaultPolicy(), func() (string, error) {
//		return "Hello World", nil
//	})
//	fmt.Println(s) // Hello World
func (c *Coordinator) GetOrComputeString(identity string, params any, policy Policy, fn func() (string, error)) (string, error) {
	if fn == nil {
		return "", ErrNilComputation
	}
	return c.GetOrComputeStringCtx(context.Background(), identity, params, policy, func(context.Context) (string, error) {
		return fn()
	})
}

// GetOrComputeStringCtx is GetOrComputeString with a context.
// @group Memoization
func (c *Coordinator) GetOrComputeStringCtx(ctx context.Context, identity string, params any, policy Policy, fn func(context.Context) (string, error)) (string, error) {
	return GetOrComputeWithCodec(ctx, c, identity, params, policy, fn, StringCodec())
}

// populate runs inside the key's flight: re-check the store, then compute and
// store a non-empty result.
func populate[T any](ctx context.Context, c *Coordinator, cacheKey string, policy Policy, fn func(context.Context) (T, error), codec Codec[T]) (flightResult, error) {
	body, ok, err := c.lookup(ctx, cacheKey)
	if err == nil && ok {
		return flightResult{body: body, cached: true}, nil
	}
	storeHealthy := err == nil

	value, err := compute(ctx, c, cacheKey, fn)
	if err != nil {
		return flightResult{}, err
	}
	payload, err := codec.Encode(value)
	if err != nil {
		c.logger.WarnContext(ctx, "encode computed value; not caching", "key", cacheKey, "error", err)
		return flightResult{value: value, computed: true}, nil
	}
	if codec.empty(payload) {
		return flightResult{value: value, computed: true}, nil
	}
	if !storeHealthy {
		return flightResult{value: value, computed: true, body: payload}, nil
	}
	stored := c.write(ctx, cacheKey, payload, policy) == nil
	return flightResult{value: value, computed: true, body: payload, stored: stored}, nil
}

func compute[T any](ctx context.Context, c *Coordinator, cacheKey string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	value, err := fn(ctx)
	c.observe(ctx, OpCompute, cacheKey, false, err, start)
	return value, err
}

func computeDirect[T any](ctx context.Context, c *Coordinator, cacheKey string, fn func(context.Context) (T, error), start time.Time) (T, error) {
	value, err := compute(ctx, c, cacheKey, fn)
	c.observe(ctx, OpGetOrCompute, cacheKey, false, err, start)
	return value, err
}

// encodeResult adapts fn for background refresh. An empty result yields a nil
// payload, which is never written.
func encodeResult[T any](fn func(context.Context) (T, error), codec Codec[T]) func(context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := codec.Encode(value)
		if err != nil {
			return nil, err
		}
		if codec.empty(payload) {
			return nil, nil
		}
		return payload, nil
	}
}
