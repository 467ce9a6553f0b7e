package memo

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyDerivation matches every *KeyError via errors.Is.
	ErrKeyDerivation = errors.New("memo: cannot derive cache key")
	// ErrNilComputation is returned when no computation is supplied.
	ErrNilComputation = errors.New("memo: computation is required")
	// ErrCacheMiss is reported by AsyncStore.GetAsync when the key is absent.
	ErrCacheMiss = errors.New("memo: cache miss")

	errEmptyIdentity = errors.New("identity is empty")
)

// KeyError reports parameters (or an identity) that cannot be turned into a
// stable cache key. It is never recovered from: computing under a wrong key
// would mix results of distinct inputs.
type KeyError struct {
	Identity string
	Err      error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("memo: derive key for %q: %v", e.Identity, e.Err)
}

func (e *KeyError) Unwrap() []error {
	return []error{ErrKeyDerivation, e.Err}
}

// StoreError wraps a failure of the underlying store. The coordinator never
// returns it to callers; it is handed to the logger and Observer while the call
// degrades to direct execution.
type StoreError struct {
	Op     string
	Driver Driver
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("memo: %s store %s %q: %v", e.Driver, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
