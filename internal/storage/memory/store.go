package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// Store keeps snapshots in memory, one ordered index per collection.
type Store struct {
	indexes map[domain.Collection]*collectionIndex
	closed  atomic.Bool
}

// Stats summarizes the store contents.
type Stats struct {
	Snapshots    int
	PayloadBytes int64
}

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{indexes: make(map[domain.Collection]*collectionIndex, len(domain.Collections))}
	for _, col := range domain.Collections {
		s.indexes[col] = newCollectionIndex()
	}
	return s
}

// Name returns the backend name.
func (s *Store) Name() string {
	return "memory"
}

// Insert stores a copy of snap.
func (s *Store) Insert(_ context.Context, snap *domain.Snapshot) error {
	idx, err := s.index(snap.Collection)
	if err != nil {
		return err
	}
	if !idx.add(snap.Clone()) {
		return domain.ErrSnapshotConflict.WithDetails(
			fmt.Sprintf("%s/%s", snap.Collection, snap.IntervalID))
	}
	return nil
}

// Get retrieves a snapshot by exact id.
func (s *Store) Get(_ context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	idx, err := s.index(col)
	if err != nil {
		return nil, err
	}
	snap, ok := idx.get(id)
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	// Return a clone to prevent external modification
	return snap.Clone(), nil
}

// Latest returns the snapshot with the greatest id.
func (s *Store) Latest(_ context.Context, col domain.Collection) (*domain.Snapshot, error) {
	idx, err := s.index(col)
	if err != nil {
		return nil, err
	}
	snap, ok := idx.last()
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// After returns the snapshot with the smallest id strictly greater than id.
func (s *Store) After(_ context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	idx, err := s.index(col)
	if err != nil {
		return nil, err
	}
	snap, ok := idx.after(id)
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// List returns all metas in ascending id order.
func (s *Store) List(_ context.Context, col domain.Collection) ([]domain.SnapshotMeta, error) {
	idx, err := s.index(col)
	if err != nil {
		return nil, err
	}
	return idx.metas(), nil
}

// Stats returns counts across all collections.
func (s *Store) Stats() Stats {
	var st Stats
	for _, idx := range s.indexes {
		st.Snapshots += idx.len()
		st.PayloadBytes += idx.payload.Load()
	}
	return st
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return errStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

var errStoreClosed = errors.New("memory store closed")

func (s *Store) index(col domain.Collection) (*collectionIndex, error) {
	if s.closed.Load() {
		return nil, errStoreClosed
	}
	idx, ok := s.indexes[col]
	if !ok {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown collection: " + string(col))
	}
	return idx, nil
}
