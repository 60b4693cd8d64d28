package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshview-go/internal/storage"
)

// OpenConfig translates the storage section for storage.Open.
// reg may be nil when metrics are disabled.
func (s *StorageSection) OpenConfig(reg prometheus.Registerer) (storage.OpenConfig, error) {
	cfg := storage.DefaultOpenConfig(s.DataDir)
	cfg.Engine = s.Engine
	cfg.Metrics = reg

	var err error
	if cfg.Badger.CacheSize, err = parseSize("storage.badger.cache_size", s.Badger.CacheSize, cfg.Badger.CacheSize); err != nil {
		return cfg, err
	}
	if cfg.Badger.ValueLogFileSize, err = parseSize("storage.badger.value_log_file_size", s.Badger.ValueLogFileSize, cfg.Badger.ValueLogFileSize); err != nil {
		return cfg, err
	}
	if s.Badger.GCInterval > 0 {
		cfg.Badger.GCInterval = s.Badger.GCInterval.String()
	}
	if s.Badger.GCThreshold > 0 {
		cfg.Badger.GCThreshold = s.Badger.GCThreshold
	}
	if s.Badger.NumMemtables > 0 {
		cfg.Badger.NumMemtables = s.Badger.NumMemtables
	}
	cfg.Badger.SyncWrites = s.Badger.SyncWrites

	if cfg.Pebble.CacheSize, err = parseSize("storage.pebble.cache_size", s.Pebble.CacheSize, cfg.Pebble.CacheSize); err != nil {
		return cfg, err
	}
	memtable, err := parseSize("storage.pebble.memtable_size", s.Pebble.MemTableSize, int64(cfg.Pebble.MemTableSize))
	if err != nil {
		return cfg, err
	}
	cfg.Pebble.MemTableSize = uint64(memtable)
	if s.Pebble.L0CompactionThreshold > 0 {
		cfg.Pebble.L0CompactionThreshold = s.Pebble.L0CompactionThreshold
	}
	if s.Pebble.L0StopWritesThreshold > 0 {
		cfg.Pebble.L0StopWritesThreshold = s.Pebble.L0StopWritesThreshold
	}
	cfg.Pebble.SyncWrites = s.Pebble.SyncWrites

	cfg.SQLite.Path = s.SQLite.Path
	if s.SQLite.BusyTimeout > 0 {
		cfg.SQLite.BusyTimeout = s.SQLite.BusyTimeout
	}

	return cfg, nil
}

// parseSize parses a human size such as "64MiB". Empty keeps def.
func parseSize(key, value string, def int64) (int64, error) {
	if value == "" {
		return def, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return int64(n), nil
}
