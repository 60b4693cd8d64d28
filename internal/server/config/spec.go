package config

import "time"

// ServerConfig is the root configuration for meshview-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Wait     WaitSection     `koanf:"wait"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Notify   NotifySection   `koanf:"notify"`
	Log      LogSection      `koanf:"log"`
	Metrics  MetricsSection  `koanf:"metrics"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`

	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. "*" allows any origin. Empty disables CORS headers.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// WaitSection bounds how long a query may wait for the next snapshot.
type WaitSection struct {
	// Timeout applies when the client does not ask for one.
	Timeout time.Duration `koanf:"timeout"`
	// MaxTimeout caps client-requested waits.
	MaxTimeout time.Duration `koanf:"max_timeout"`
}

// StorageSection configures the snapshot store.
type StorageSection struct {
	// Engine is one of badger, pebble, sqlite, memory.
	Engine  string `koanf:"engine"`
	DataDir string `koanf:"data_dir"`

	Badger BadgerSection `koanf:"badger"`
	Pebble PebbleSection `koanf:"pebble"`
	SQLite SQLiteSection `koanf:"sqlite"`
}

// BadgerSection tunes the badger engine. Sizes accept units ("64MiB").
type BadgerSection struct {
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        string        `koanf:"cache_size"`
	ValueLogFileSize string        `koanf:"value_log_file_size"`
	NumMemtables     int           `koanf:"num_memtables"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// PebbleSection tunes the pebble engine. Sizes accept units ("32MiB").
type PebbleSection struct {
	CacheSize             string `koanf:"cache_size"`
	MemTableSize          string `koanf:"memtable_size"`
	L0CompactionThreshold int    `koanf:"l0_compaction_threshold"`
	L0StopWritesThreshold int    `koanf:"l0_stop_writes_threshold"`
	SyncWrites            bool   `koanf:"sync_writes"`
}

// SQLiteSection configures the sqlite engine.
type SQLiteSection struct {
	// Path defaults to <data_dir>/meshview.db.
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// IngestTokenHash is a bcrypt hash of the bearer token that
	// PUT /snapshots requires. Empty leaves ingest open.
	IngestTokenHash string `koanf:"ingest_token_hash"`
}

// NotifySection configures outbound insert notifications.
type NotifySection struct {
	MQTT MQTTConfig `koanf:"mqtt"`
}

// MQTTConfig configures the MQTT relay.
type MQTTConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Broker         string        `koanf:"broker"`
	ClientID       string        `koanf:"client_id"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	TopicPrefix    string        `koanf:"topic_prefix"`
	QoS            int           `koanf:"qos"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}
