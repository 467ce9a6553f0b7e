package memo

import "github.com/goforj/memo/memocore"

// Driver identifies a store backend.
type Driver = memocore.Driver

// Store is the pluggable TTL store the coordinator reads and writes.
type Store = memocore.Store

const (
	DriverNull   = memocore.DriverNull
	DriverFile   = memocore.DriverFile
	DriverMemory = memocore.DriverMemory
	DriverDynamo = memocore.DriverDynamo
	DriverSQL    = memocore.DriverSQL
	DriverRedis  = memocore.DriverRedis
	DriverNATS   = memocore.DriverNATS
)
