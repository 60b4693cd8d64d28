package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error)
	Latest(ctx context.Context, col domain.Collection) (*domain.Snapshot, error)
	After(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error)
	List(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error)
}

// InsertCounter reports how many snapshots a collection has received.
// The snapshot store implements it.
type InsertCounter interface {
	Published(col domain.Collection) uint64
}

// QueryService answers snapshot queries.
//
// Identical concurrent queries share one backend round trip. When the reader
// is an InsertCounter, a query only joins a round trip that started after the
// last completed insert. The returned snapshot may be shared between callers
// and must not be modified.
type QueryService struct {
	store   SnapshotReader
	inserts InsertCounter
	metrics *metric.Registry
	logger  *slog.Logger
	group   singleflight.Group
}

// NewQueryService creates a QueryService. metrics may be nil.
func NewQueryService(store SnapshotReader, metrics *metric.Registry, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	inserts, _ := store.(InsertCounter)
	return &QueryService{
		store:   store,
		inserts: inserts,
		metrics: metrics,
		logger:  logger.With("component", "query"),
	}
}

// Query returns the latest snapshot when after is nil, otherwise the first
// snapshot with an id strictly greater than *after. A miss is reported as
// domain.ErrSnapshotNotFound.
func (s *QueryService) Query(ctx context.Context, col domain.Collection, after *domain.IntervalID) (*domain.Snapshot, error) {
	key := queryKey(col, after, s.generation(col))

	ch := s.group.DoChan(key, func() (any, error) {
		// Shared by every caller of this key, so one caller going away must
		// not fail the others.
		return s.fetch(context.WithoutCancel(ctx), col, after)
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(*domain.Snapshot)
		return s.record(col, snap, res.Err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// queryFresh bypasses coalescing. The waiter uses it after subscribing, when
// a result computed before the subscription could miss an insert.
func (s *QueryService) queryFresh(ctx context.Context, col domain.Collection, after *domain.IntervalID) (*domain.Snapshot, error) {
	snap, err := s.fetch(ctx, col, after)
	return s.record(col, snap, err)
}

func (s *QueryService) fetch(ctx context.Context, col domain.Collection, after *domain.IntervalID) (*domain.Snapshot, error) {
	if after == nil {
		return s.store.Latest(ctx, col)
	}
	return s.store.After(ctx, col, *after)
}

func (s *QueryService) record(col domain.Collection, snap *domain.Snapshot, err error) (*domain.Snapshot, error) {
	switch {
	case err == nil:
		s.metrics.RecordQuery(string(col), "hit")
		return snap, nil
	case errors.Is(err, domain.ErrSnapshotNotFound):
		s.metrics.RecordQuery(string(col), "miss")
	default:
		s.metrics.RecordQuery(string(col), "error")
		s.logger.Warn("snapshot query failed", "collection", col, "error", err)
	}
	return nil, err
}

// Intervals returns the metadata of every snapshot in col, ascending.
func (s *QueryService) Intervals(ctx context.Context, col domain.Collection) ([]domain.SnapshotMeta, error) {
	metas, err := s.store.List(ctx, col)
	if err != nil {
		s.logger.Warn("interval listing failed", "collection", col, "error", err)
		return nil, err
	}
	return metas, nil
}

func (s *QueryService) generation(col domain.Collection) uint64 {
	if s.inserts == nil {
		return 0
	}
	return s.inserts.Published(col)
}

// queryKey includes the insert generation so a round trip never serves a
// caller that arrived after a newer commit.
func queryKey(col domain.Collection, after *domain.IntervalID, gen uint64) string {
	base := string(col) + "/latest"
	if after != nil {
		base = string(col) + "/after/" + after.String()
	}
	return base + "@" + strconv.FormatUint(gen, 10)
}
