package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr          = "127.0.0.1:8080"
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute

	DefaultRateLimitRPS   = 50
	DefaultRateLimitBurst = 100

	DefaultWaitTimeout    = 10 * time.Second
	DefaultWaitMaxTimeout = 60 * time.Second

	DefaultEngine  = "badger"
	DefaultDataDir = "/var/lib/meshview/data"

	DefaultMQTTClientID       = "meshview-server"
	DefaultMQTTTopicPrefix    = "meshview"
	DefaultMQTTConnectTimeout = 10 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				ReadHeaderTimeout: DefaultReadHeaderTimeout,
				IdleTimeout:       DefaultIdleTimeout,
				RateLimit: RateLimitConfig{
					Enabled: false,
					RPS:     DefaultRateLimitRPS,
					Burst:   DefaultRateLimitBurst,
				},
			},
		},
		Wait: WaitSection{
			Timeout:    DefaultWaitTimeout,
			MaxTimeout: DefaultWaitMaxTimeout,
		},
		Storage: StorageSection{
			Engine:  DefaultEngine,
			DataDir: DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:       10 * time.Minute,
				GCThreshold:      0.5,
				CacheSize:        "64MiB",
				ValueLogFileSize: "256MiB",
				NumMemtables:     2,
				SyncWrites:       true,
			},
			Pebble: PebbleSection{
				CacheSize:             "64MiB",
				MemTableSize:          "32MiB",
				L0CompactionThreshold: 4,
				L0StopWritesThreshold: 16,
				SyncWrites:            true,
			},
			SQLite: SQLiteSection{
				BusyTimeout: 5 * time.Second,
			},
		},
		Notify: NotifySection{
			MQTT: MQTTConfig{
				ClientID:       DefaultMQTTClientID,
				TopicPrefix:    DefaultMQTTTopicPrefix,
				QoS:            1,
				ConnectTimeout: DefaultMQTTConnectTimeout,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
	}
}
