package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

// PebbleEngine implements KVEngine using Pebble.
type PebbleEngine struct {
	db     *pebble.DB
	cache  *pebble.Cache
	wo     *pebble.WriteOptions
	logger *slog.Logger
	closed atomic.Bool
}

// NewPebbleEngine opens (or creates) a Pebble database under cfg.Dir.
func NewPebbleEngine(cfg KVConfig, logger *slog.Logger) (*PebbleEngine, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("pebble: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("pebble: ensure directory: %w", err)
	}

	pc := cfg.Pebble
	opts := &pebble.Options{
		MemTableSize:          pc.MemTableSize,
		L0CompactionThreshold: pc.L0CompactionThreshold,
		L0StopWritesThreshold: pc.L0StopWritesThreshold,
		Logger:                &pebbleLogger{logger: logger},
	}
	if opts.L0StopWritesThreshold <= opts.L0CompactionThreshold {
		opts.L0StopWritesThreshold = opts.L0CompactionThreshold + 4
	}
	if pc.CacheSize > 0 {
		opts.Cache = pebble.NewCache(pc.CacheSize)
	}

	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		if opts.Cache != nil {
			opts.Cache.Unref()
		}
		return nil, fmt.Errorf("pebble: open: %w", err)
	}

	wo := pebble.NoSync
	if pc.SyncWrites {
		wo = pebble.Sync
	}

	logger.Info("pebble engine started",
		"dir", cfg.Dir,
		"cache_size", pc.CacheSize,
		"sync_writes", pc.SyncWrites)

	return &PebbleEngine{
		db:     db,
		cache:  opts.Cache,
		wo:     wo,
		logger: logger,
	}, nil
}

// Get retrieves a value by key.
func (e *PebbleEngine) Get(_ context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	value, closer, err := e.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), value...), nil
}

// Has reports whether key exists.
func (e *PebbleEngine) Has(ctx context.Context, key []byte) (bool, error) {
	_, err := e.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// SetBatch writes all pairs in a single batch commit.
func (e *PebbleEngine) SetBatch(_ context.Context, pairs []KV) error {
	if e.closed.Load() {
		return ErrClosed
	}

	batch := e.db.NewBatch()
	defer batch.Close()

	for _, kv := range pairs {
		if err := batch.Set(kv.Key, kv.Value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(e.wo)
}

// SeekAfter returns the first pair under prefix with a key greater than key.
func (e *PebbleEngine) SeekAfter(_ context.Context, prefix, key []byte) (KV, error) {
	if e.closed.Load() {
		return KV{}, ErrClosed
	}

	iter, err := e.db.NewIter(iterOptionsForPrefix(prefix))
	if err != nil {
		return KV{}, err
	}
	defer iter.Close()

	valid := iter.SeekGE(key)
	if valid && bytes.Equal(iter.Key(), key) {
		valid = iter.Next()
	}
	if !valid {
		if err := iter.Error(); err != nil {
			return KV{}, err
		}
		return KV{}, ErrKeyNotFound
	}
	return copyIter(iter), nil
}

// Last returns the greatest pair under prefix.
func (e *PebbleEngine) Last(_ context.Context, prefix []byte) (KV, error) {
	if e.closed.Load() {
		return KV{}, ErrClosed
	}

	iter, err := e.db.NewIter(iterOptionsForPrefix(prefix))
	if err != nil {
		return KV{}, err
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return KV{}, err
		}
		return KV{}, ErrKeyNotFound
	}
	return copyIter(iter), nil
}

// Scan iterates over keys with a given prefix.
func (e *PebbleEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if e.closed.Load() {
		return ErrClosed
	}

	iter, err := e.db.NewIter(iterOptionsForPrefix(prefix))
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		kv := copyIter(iter)
		if !fn(kv.Key, kv.Value) {
			break
		}
	}
	return iter.Error()
}

// Stats returns storage statistics.
func (e *PebbleEngine) Stats(_ context.Context) (*KVStats, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	m := e.db.Metrics()
	size := m.DiskSpaceUsage()

	var lsm uint64
	for _, level := range m.Levels {
		lsm += uint64(level.Size)
	}

	return &KVStats{
		TotalSize: size,
		LSMSize:   lsm,
	}, nil
}

// Close flushes and closes the database.
func (e *PebbleEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("shutting down pebble engine")

	err := e.db.Close()
	if e.cache != nil {
		e.cache.Unref()
		e.cache = nil
	}
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

func iterOptionsForPrefix(prefix []byte) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	}
}

func copyIter(iter *pebble.Iterator) KV {
	return KV{
		Key:   append([]byte(nil), iter.Key()...),
		Value: append([]byte(nil), iter.Value()...),
	}
}

// pebbleLogger adapts slog.Logger to Pebble's Logger interface.
type pebbleLogger struct {
	logger *slog.Logger
}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
