package memo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultCachePrefix    = "memo"
	defaultStoreTTL       = 30 * time.Second
	defaultPolicyTTL      = 30 * time.Second
	defaultRefreshAfter   = 120 * time.Second
	defaultRefreshWorkers = 4
	defaultRefreshQueue   = 256
	defaultRefreshTimeout = 5 * time.Minute
	defaultSQLTable       = "memo_entries"
	defaultDynamoTable    = "memo_entries"
	defaultDynamoRegion   = "us-east-1"

	// EnvCacheEnabled toggles caching for every coordinator using the default switch.
	EnvCacheEnabled = "MEMO_CACHE_ENABLED"

	envDefaultTTL     = "MEMO_DEFAULT_TTL"
	envRefreshAfter   = "MEMO_REFRESH_AFTER"
	envRefreshWorkers = "MEMO_REFRESH_WORKERS"
)

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "memo-cache")
}

// Policy controls how long a computed value lives and when it is refreshed
// in the background.
//
// TTL <= 0 disables caching for the call: the computation runs directly.
// RefreshAfter <= 0 disables refresh-ahead for the call.
type Policy struct {
	TTL          time.Duration
	RefreshAfter time.Duration
}

// DefaultPolicy caches for 30s and refreshes in the background once 120s have
// passed since the last successful computation.
func DefaultPolicy() Policy {
	return Policy{TTL: defaultPolicyTTL, RefreshAfter: defaultRefreshAfter}
}

// Config controls how a Coordinator is constructed.
type Config struct {
	// Enabled is consulted on every call; false degrades to direct execution.
	Enabled func() bool

	// DefaultPolicy is returned by Coordinator.DefaultPolicy.
	DefaultPolicy Policy

	// RefreshWorkers bounds concurrent background refreshes.
	RefreshWorkers int
	// RefreshQueue bounds pending background refreshes; a full queue skips the refresh.
	RefreshQueue int
	// RefreshTimeout bounds a single background refresh. A refresh flag older
	// than this is treated as abandoned and may be reclaimed.
	RefreshTimeout time.Duration

	Logger   *slog.Logger
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.Enabled == nil {
		c.Enabled = EnvSwitch(EnvCacheEnabled)
	}
	if c.DefaultPolicy == (Policy{}) {
		c.DefaultPolicy = DefaultPolicy()
	}
	if c.RefreshWorkers <= 0 {
		c.RefreshWorkers = defaultRefreshWorkers
	}
	if c.RefreshQueue <= 0 {
		c.RefreshQueue = defaultRefreshQueue
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaultRefreshTimeout
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	return c
}

// EnvSwitch returns a switch that reads the named environment variable on every
// call. Unset or unparseable values leave caching enabled.
func EnvSwitch(name string) func() bool {
	return func() bool {
		value, ok := os.LookupEnv(name)
		if !ok {
			return true
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return true
		}
		return enabled
	}
}

// ConfigFromEnv builds a Config from MEMO_* environment variables.
//
// MEMO_DEFAULT_TTL and MEMO_REFRESH_AFTER take Go durations ("30s", "2m"),
// MEMO_REFRESH_WORKERS an integer. Unset variables keep their defaults.
func ConfigFromEnv() (Config, error) {
	cfg := Config{DefaultPolicy: DefaultPolicy()}
	if value, ok := lookupEnv(envDefaultTTL); ok {
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("memo: parse %s: %w", envDefaultTTL, err)
		}
		cfg.DefaultPolicy.TTL = ttl
	}
	if value, ok := lookupEnv(envRefreshAfter); ok {
		after, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("memo: parse %s: %w", envRefreshAfter, err)
		}
		cfg.DefaultPolicy.RefreshAfter = after
	}
	if value, ok := lookupEnv(envRefreshWorkers); ok {
		workers, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("memo: parse %s: %w", envRefreshWorkers, err)
		}
		cfg.RefreshWorkers = workers
	}
	return cfg.withDefaults(), nil
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// StoreConfig controls how a Store is constructed.
type StoreConfig struct {
	Driver Driver

	// DefaultTTL is used when a Set provides ttl <= 0.
	DefaultTTL time.Duration

	// MemoryCleanupInterval enables a background sweep for the memory driver.
	// Zero keeps expiry purely lazy.
	MemoryCleanupInterval time.Duration

	// Prefix namespaces keys in shared backends.
	Prefix string

	// Compression and MaxValueBytes shape payloads before they reach the backend.
	Compression   CompressionCodec
	MaxValueBytes int
	// EncryptionKey enables AES-GCM payload encryption (16, 24 or 32 bytes).
	EncryptionKey []byte

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue
	// NATSBucketTTL delegates expiry to the bucket's own TTL.
	NATSBucketTTL bool

	// SQL settings for DriverSQL ("sqlite", "pgx", "mysql").
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// DynamoDB settings for DriverDynamo.
	DynamoClient   DynamoAPI
	DynamoEndpoint string
	DynamoRegion   string
	DynamoTable    string

	// FileDir controls where the file driver keeps entries.
	FileDir string
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultStoreTTL
	}
	if c.Prefix == "" {
		c.Prefix = defaultCachePrefix
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
	if c.SQLTable == "" {
		c.SQLTable = defaultSQLTable
	}
	if c.DynamoTable == "" {
		c.DynamoTable = defaultDynamoTable
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = defaultDynamoRegion
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	return c
}
