package storage

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// KVBackend stores snapshots in an ordered KVEngine.
//
// Payload records and meta records live under separate prefixes so
// listing never reads payload bodies.
type KVBackend struct {
	engine KVEngine
	name   string
}

// NewKVBackend wraps engine. The name is reported by Name.
func NewKVBackend(name string, engine KVEngine) *KVBackend {
	return &KVBackend{engine: engine, name: name}
}

// Name returns the engine name.
func (b *KVBackend) Name() string {
	return b.name
}

// Engine returns the underlying KV engine.
func (b *KVBackend) Engine() KVEngine {
	return b.engine
}

// Insert writes the snapshot and its meta in one batch.
// The caller serializes inserts per collection, which makes the
// existence check and the write atomic with respect to each other.
func (b *KVBackend) Insert(ctx context.Context, snap *domain.Snapshot) error {
	key := snapshotKey(snap.Collection, snap.IntervalID)

	exists, err := b.engine.Has(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrSnapshotConflict.WithDetails(
			fmt.Sprintf("%s/%s", snap.Collection, snap.IntervalID))
	}

	record, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	meta, err := codec.Marshal(snap.Meta())
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	return b.engine.SetBatch(ctx, []KV{
		{Key: key, Value: record},
		{Key: metaKey(snap.Collection, snap.IntervalID), Value: meta},
	})
}

// Get returns the snapshot with exactly the given id.
func (b *KVBackend) Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	value, err := b.engine.Get(ctx, snapshotKey(col, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return decodeSnapshot(value)
}

// Latest returns the snapshot with the greatest id.
func (b *KVBackend) Latest(ctx context.Context, col domain.Collection) (*domain.Snapshot, error) {
	kv, err := b.engine.Last(ctx, collectionPrefix(snapshotKeyTag, col))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return decodeSnapshot(kv.Value)
}

// After returns the snapshot with the smallest id strictly greater than id.
func (b *KVBackend) After(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	kv, err := b.engine.SeekAfter(ctx, collectionPrefix(snapshotKeyTag, col), snapshotKey(col, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return decodeSnapshot(kv.Value)
}

// List returns every meta record in ascending id order.
func (b *KVBackend) List(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error) {
	metas := make([]domain.SnapshotMeta, 0)
	var decodeErr error

	err := b.engine.Scan(ctx, collectionPrefix(metaKeyTag, col), func(_, value []byte) bool {
		var m domain.SnapshotMeta
		if err := codec.Unmarshal(value, &m); err != nil {
			decodeErr = fmt.Errorf("decode meta: %w", err)
			return false
		}
		metas = append(metas, m)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return metas, nil
}

// Ping checks that the engine still answers.
func (b *KVBackend) Ping(ctx context.Context) error {
	_, err := b.engine.Stats(ctx)
	return err
}

// Close closes the engine.
func (b *KVBackend) Close() error {
	return b.engine.Close()
}

func decodeSnapshot(value []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := codec.Unmarshal(value, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrKeyNotFound) {
		return domain.ErrSnapshotNotFound
	}
	return err
}
