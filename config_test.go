package memo

import (
	"testing"
	"time"
)

func TestEnvSwitch(t *testing.T) {
	const name = "MEMO_TEST_SWITCH"
	enabled := EnvSwitch(name)

	t.Setenv(name, "")
	if !enabled() {
		t.Fatalf("expected empty value to leave caching enabled")
	}
	t.Setenv(name, "false")
	if enabled() {
		t.Fatalf("expected false to disable caching")
	}
	t.Setenv(name, " 0 ")
	if enabled() {
		t.Fatalf("expected 0 to disable caching")
	}
	t.Setenv(name, "TRUE")
	if !enabled() {
		t.Fatalf("expected TRUE to enable caching")
	}
	t.Setenv(name, "sometimes")
	if !enabled() {
		t.Fatalf("expected unparseable value to leave caching enabled")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Enabled == nil || cfg.Logger == nil {
		t.Fatalf("expected switch and logger defaults")
	}
	if cfg.DefaultPolicy != DefaultPolicy() {
		t.Fatalf("expected default policy, got %+v", cfg.DefaultPolicy)
	}
	if cfg.RefreshWorkers != defaultRefreshWorkers || cfg.RefreshQueue != defaultRefreshQueue {
		t.Fatalf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.RefreshTimeout != defaultRefreshTimeout {
		t.Fatalf("unexpected refresh timeout %s", cfg.RefreshTimeout)
	}
	if p := DefaultPolicy(); p.TTL != 30*time.Second || p.RefreshAfter != 120*time.Second {
		t.Fatalf("unexpected default policy %+v", p)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(envDefaultTTL, "45s")
	t.Setenv(envRefreshAfter, "2m")
	t.Setenv(envRefreshWorkers, "7")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config from env failed: %v", err)
	}
	if cfg.DefaultPolicy.TTL != 45*time.Second || cfg.DefaultPolicy.RefreshAfter != 2*time.Minute {
		t.Fatalf("unexpected policy %+v", cfg.DefaultPolicy)
	}
	if cfg.RefreshWorkers != 7 {
		t.Fatalf("unexpected workers %d", cfg.RefreshWorkers)
	}

	t.Setenv(envDefaultTTL, "soon")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected parse error for bad duration")
	}
	t.Setenv(envDefaultTTL, "")
	t.Setenv(envRefreshWorkers, "many")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected parse error for bad worker count")
	}
}

func TestStoreConfigDefaults(t *testing.T) {
	cfg := StoreConfig{}.withDefaults()
	if cfg.Driver != DriverMemory || cfg.DefaultTTL != defaultStoreTTL || cfg.Prefix != defaultCachePrefix {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Compression != CompressionNone || cfg.SQLTable != defaultSQLTable || cfg.DynamoTable != defaultDynamoTable {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FileDir == "" || cfg.DynamoRegion != defaultDynamoRegion {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := Config{}
	for _, opt := range []Option{
		WithEnabled(false),
		WithDefaultPolicy(Policy{TTL: time.Second}),
		WithRefreshWorkers(2, 8),
		WithRefreshTimeout(time.Minute),
		WithLogger(discardLogger()),
	} {
		cfg = opt(cfg)
	}
	if cfg.Enabled() {
		t.Fatalf("expected disabled switch")
	}
	if cfg.DefaultPolicy.TTL != time.Second || cfg.RefreshWorkers != 2 || cfg.RefreshQueue != 8 || cfg.RefreshTimeout != time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}

	key := []byte("0123456789abcdef")
	storeCfg := StoreConfig{}
	for _, opt := range []StoreOption{
		WithDefaultTTL(time.Minute),
		WithPrefix("app"),
		WithCompression(CompressionGzip),
		WithMaxValueBytes(1024),
		WithEncryptionKey(key),
		WithSQL("sqlite", "file::memory:", "t"),
		WithNATSBucketTTL(true),
		WithDynamoEndpoint("http://localhost:8000"),
		WithDynamoRegion("eu-west-1"),
		WithDynamoTable("tbl"),
		WithFileDir("/tmp/x"),
		WithMemoryCleanupInterval(time.Second),
	} {
		storeCfg = opt(storeCfg)
	}
	key[0] = 'X'
	if string(storeCfg.EncryptionKey) != "0123456789abcdef" {
		t.Fatalf("expected encryption key to be copied")
	}
	if storeCfg.SQLDriverName != "sqlite" || storeCfg.SQLTable != "t" || !storeCfg.NATSBucketTTL {
		t.Fatalf("unexpected store config %+v", storeCfg)
	}
	if storeCfg.DynamoTable != "tbl" || storeCfg.DynamoRegion != "eu-west-1" || storeCfg.FileDir != "/tmp/x" {
		t.Fatalf("unexpected store config %+v", storeCfg)
	}
}
