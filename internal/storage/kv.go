package storage

import (
	"context"
	"errors"
)

// Common KV errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine is the ordered embedded key-value store behind the KV backends.
//
// Keys are compared bytewise. Implementations must be safe for concurrent
// use and must make a SetBatch visible atomically.
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Has reports whether key exists without reading its value.
	Has(ctx context.Context, key []byte) (bool, error)

	// SetBatch writes all pairs in one atomic commit.
	SetBatch(ctx context.Context, pairs []KV) error

	// SeekAfter returns the first pair under prefix whose key is strictly
	// greater than key. Returns ErrKeyNotFound if there is none.
	SeekAfter(ctx context.Context, prefix, key []byte) (KV, error)

	// Last returns the greatest pair under prefix.
	// Returns ErrKeyNotFound if the prefix is empty.
	Last(ctx context.Context, prefix []byte) (KV, error)

	// Scan iterates over keys with a given prefix in ascending order.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the KV engine.
	Close() error
}

// KV is a key-value pair. Both slices are owned by the receiver.
type KV struct {
	Key   []byte
	Value []byte
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size (Badger only).
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of value log rewrites performed.
	GCRuns uint64
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory.
	Dir string

	// Badger-specific configuration.
	Badger BadgerConfig

	// Pebble-specific configuration.
	Pebble PebbleConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites enables fsync after each write.
	// Default: true (a snapshot is acknowledged only once durable)
	SyncWrites bool
}

// PebbleConfig contains Pebble-specific tuning parameters.
type PebbleConfig struct {
	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// MemTableSize is the write buffer size in bytes.
	// Default: 32MB
	MemTableSize uint64

	// L0CompactionThreshold is the L0 file count that triggers compaction.
	// Default: 4
	L0CompactionThreshold int

	// L0StopWritesThreshold is the L0 file count that stalls writes.
	// Default: 16
	L0StopWritesThreshold int

	// SyncWrites enables fsync on commit.
	// Default: true
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		Pebble: DefaultPebbleConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
		SyncWrites:       true,
	}
}

// DefaultPebbleConfig returns the default Pebble configuration.
func DefaultPebbleConfig() PebbleConfig {
	return PebbleConfig{
		CacheSize:             64 << 20, // 64MB
		MemTableSize:          32 << 20, // 32MB
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 16,
		SyncWrites:            true,
	}
}

// prefixUpperBound returns the smallest key greater than every key
// starting with prefix, or nil if there is none.
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
