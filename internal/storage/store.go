package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/storage/changefeed"
)

// Backend persists snapshots. Implementations report a taken id with
// domain.ErrSnapshotConflict and a miss with domain.ErrSnapshotNotFound;
// every other error is treated as a storage failure.
type Backend interface {
	Name() string
	Insert(ctx context.Context, snap *domain.Snapshot) error
	Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error)
	Latest(ctx context.Context, col domain.Collection) (*domain.Snapshot, error)
	After(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error)
	List(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error)
	Ping(ctx context.Context) error
	Close() error
}

// Store is the snapshot store used by the services.
//
// It serializes inserts per collection and publishes every committed
// snapshot on that collection's changefeed before releasing the lock, so
// notifications follow commit order and a subscriber registered before an
// insert observes it.
type Store struct {
	backend Backend
	logger  *slog.Logger

	feeds map[domain.Collection]*changefeed.Feed
	locks map[domain.Collection]*sync.Mutex

	closeMu sync.RWMutex
	closed  bool
}

// NewStore wraps a backend. The store owns the backend and closes it.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "store", "backend", backend.Name()),
		feeds:   make(map[domain.Collection]*changefeed.Feed, len(domain.Collections)),
		locks:   make(map[domain.Collection]*sync.Mutex, len(domain.Collections)),
	}
	for _, col := range domain.Collections {
		s.feeds[col] = changefeed.New(string(col))
		s.locks[col] = &sync.Mutex{}
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Insert appends a snapshot and notifies the collection's subscribers.
func (s *Store) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	lock := s.locks[snap.Collection]
	lock.Lock()
	defer lock.Unlock()

	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return errStoreClosed("insert")
	}

	if err := s.backend.Insert(ctx, snap); err != nil {
		return wrapErr("insert", err)
	}

	s.feeds[snap.Collection].Publish(snap.Clone())

	s.logger.Debug("snapshot inserted",
		"collection", snap.Collection,
		"interval_id", snap.IntervalID,
		"size", len(snap.Payload))
	return nil
}

// Get returns the snapshot with exactly the given id.
func (s *Store) Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	if err := s.check(col, "get"); err != nil {
		return nil, err
	}
	defer s.closeMu.RUnlock()

	snap, err := s.backend.Get(ctx, col, id)
	return snap, wrapErr("get", err)
}

// Latest returns the snapshot with the greatest id, or ErrSnapshotNotFound.
func (s *Store) Latest(ctx context.Context, col domain.Collection) (*domain.Snapshot, error) {
	if err := s.check(col, "latest"); err != nil {
		return nil, err
	}
	defer s.closeMu.RUnlock()

	snap, err := s.backend.Latest(ctx, col)
	return snap, wrapErr("latest", err)
}

// After returns the snapshot with the smallest id strictly greater than
// id, or ErrSnapshotNotFound.
func (s *Store) After(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error) {
	if err := s.check(col, "after"); err != nil {
		return nil, err
	}
	defer s.closeMu.RUnlock()

	snap, err := s.backend.After(ctx, col, id)
	return snap, wrapErr("after", err)
}

// List returns the metadata of every snapshot in ascending id order.
func (s *Store) List(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error) {
	if err := s.check(col, "list"); err != nil {
		return nil, err
	}
	defer s.closeMu.RUnlock()

	metas, err := s.backend.List(ctx, col)
	return metas, wrapErr("list", err)
}

// Subscribe registers a one-shot observer for the next matching insert.
// The caller must Cancel the subscription when it stops waiting.
func (s *Store) Subscribe(col domain.Collection, match changefeed.MatchFunc) (*changefeed.Subscription, error) {
	feed, ok := s.feeds[col]
	if !ok {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown collection: " + string(col))
	}
	return feed.Subscribe(match), nil
}

// Watch registers a persistent observer on a collection.
func (s *Store) Watch(col domain.Collection, buffer int) (*changefeed.Subscription, error) {
	feed, ok := s.feeds[col]
	if !ok {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown collection: " + string(col))
	}
	return feed.Watch(buffer), nil
}

// Subscribers returns the number of observers on a collection.
func (s *Store) Subscribers(col domain.Collection) int {
	if feed, ok := s.feeds[col]; ok {
		return feed.Len()
	}
	return 0
}

// Published returns how many snapshots were inserted into a collection
// since the store was opened.
func (s *Store) Published(col domain.Collection) uint64 {
	if feed, ok := s.feeds[col]; ok {
		return feed.Published()
	}
	return 0
}

// CloseFeeds closes every changefeed but leaves the backend open. Pending
// waiters return at once and later subscriptions receive a closed channel,
// while reads keep working. Used at shutdown to drain long polls before the
// HTTP server stops. Close still closes the backend.
func (s *Store) CloseFeeds() {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	for _, feed := range s.feeds {
		feed.Close()
	}
}

// Ping checks that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return errStoreClosed("ping")
	}
	return wrapErr("ping", s.backend.Ping(ctx))
}

// Close closes every changefeed, then the backend. Waiters observe the
// closed feed and return.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, feed := range s.feeds {
		feed.Close()
	}
	if err := s.backend.Close(); err != nil {
		return wrapErr("close", err)
	}
	s.logger.Info("store closed")
	return nil
}

// check validates col and takes the read side of closeMu on success.
func (s *Store) check(col domain.Collection, op string) error {
	if !col.Valid() {
		return domain.ErrInvalidArgument.WithDetails("unknown collection: " + string(col))
	}
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return errStoreClosed(op)
	}
	return nil
}

func errStoreClosed(op string) error {
	return domain.ErrStorageError.WithDetails(op + ": store closed")
}

// wrapErr keeps domain errors and context errors as they are and turns
// everything else into ErrStorageError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, "") ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ErrStorageError.WithDetails(op).WithCause(err)
}
