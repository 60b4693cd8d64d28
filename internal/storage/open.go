package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshview-go/internal/storage/memory"
)

// Engine names accepted by Open.
const (
	EngineBadger = "badger"
	EnginePebble = "pebble"
	EngineSQLite = "sqlite"
	EngineMemory = "memory"
)

// Engines lists every supported engine name.
var Engines = []string{EngineBadger, EnginePebble, EngineSQLite, EngineMemory}

// OpenConfig selects and configures a backend.
type OpenConfig struct {
	// Engine is one of Engines. Default: badger
	Engine string

	// DataDir is the root data directory. Each engine uses a subdirectory.
	DataDir string

	Badger BadgerConfig
	Pebble PebbleConfig
	SQLite SQLiteConfig

	// Metrics receives engine-level metrics when non-nil.
	Metrics prometheus.Registerer
}

// DefaultOpenConfig returns the default backend selection.
func DefaultOpenConfig(dataDir string) OpenConfig {
	return OpenConfig{
		Engine:  EngineBadger,
		DataDir: dataDir,
		Badger:  DefaultBadgerConfig(),
		Pebble:  DefaultPebbleConfig(),
		SQLite:  DefaultSQLiteConfig(),
	}
}

// Open creates the configured backend.
func Open(cfg OpenConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineBadger
	}
	if cfg.Engine != EngineMemory && cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required for engine %q", cfg.Engine)
	}

	kv := KVConfig{
		Badger: cfg.Badger,
		Pebble: cfg.Pebble,
	}

	switch cfg.Engine {
	case EngineBadger:
		kv.Dir = filepath.Join(cfg.DataDir, "badger")
		engine, err := NewBadgerEngine(kv, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Metrics != nil {
			engine.RegisterMetrics(cfg.Metrics)
		}
		return NewKVBackend(EngineBadger, engine), nil

	case EnginePebble:
		kv.Dir = filepath.Join(cfg.DataDir, "pebble")
		engine, err := NewPebbleEngine(kv, logger)
		if err != nil {
			return nil, err
		}
		return NewKVBackend(EnginePebble, engine), nil

	case EngineSQLite:
		sc := cfg.SQLite
		if sc.Path == "" {
			sc.Path = filepath.Join(cfg.DataDir, "meshview.db")
		}
		return OpenSQLite(sc, logger)

	case EngineMemory:
		logger.Warn("using in-memory storage, snapshots are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
