package memo

import (
	"context"
	"time"
)

// nullStore remembers nothing: every lookup misses and every write succeeds.
// A coordinator over it always computes.
type nullStore struct{}

func newNullStore() *nullStore { return &nullStore{} }

func (s *nullStore) Driver() Driver { return DriverNull }

func (s *nullStore) Ready(context.Context) error { return nil }

func (s *nullStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (s *nullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
