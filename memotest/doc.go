// Package memotest provides reusable store contract tests for memocore.Store implementations.
//
// Store implementations outside the root package can run the same checks from
// their own tests without importing root test helpers.
//
// Example pattern:
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := memo.NewRedisStore(context.Background(), client, memo.WithPrefix("test"))
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		memotest.RunStoreContract(t, store, memotest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
package memotest
