package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

// SnapshotWriter is the write side of the snapshot store.
type SnapshotWriter interface {
	Insert(ctx context.Context, snap *domain.Snapshot) error
	Get(ctx context.Context, col domain.Collection, id domain.IntervalID) (*domain.Snapshot, error)
}

// IngestRequest carries the documents of one collection period.
type IngestRequest struct {
	IntervalID domain.IntervalID
	Overlays   json.RawMessage
	Topology   json.RawMessage
}

// IngestResult reports what was written.
type IngestResult struct {
	IntervalID domain.IntervalID   `json:"intervalId"`
	Inserted   []domain.Collection `json:"inserted"`
}

// IngestService writes overlay/topology pairs.
type IngestService struct {
	store   SnapshotWriter
	metrics *metric.Registry
	logger  *slog.Logger
}

// NewIngestService creates an IngestService. metrics may be nil.
func NewIngestService(store SnapshotWriter, metrics *metric.Registry, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "ingest"),
	}
}

// Ingest inserts the Topology document, then the Overlays document, so a
// reader woken by the overlay insert finds the matching topology.
//
// A request that repeats a half-written pair (topology present, overlays
// missing) completes it. When both already exist the result is
// domain.ErrSnapshotConflict.
func (s *IngestService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if len(req.Overlays) == 0 {
		s.metrics.RecordIngest("invalid")
		return nil, domain.ErrMissingArgument.WithDetails("overlays is required")
	}
	if len(req.Topology) == 0 {
		s.metrics.RecordIngest("invalid")
		return nil, domain.ErrMissingArgument.WithDetails("topology is required")
	}

	topo := domain.NewSnapshot(domain.CollectionTopology, req.IntervalID, req.Topology)
	over := domain.NewSnapshot(domain.CollectionOverlays, req.IntervalID, req.Overlays)
	for _, snap := range []*domain.Snapshot{topo, over} {
		if err := snap.Validate(); err != nil {
			s.metrics.RecordIngest("invalid")
			return nil, err
		}
	}

	res := &IngestResult{IntervalID: req.IntervalID}

	err := s.store.Insert(ctx, topo)
	switch {
	case err == nil:
		res.Inserted = append(res.Inserted, domain.CollectionTopology)
	case errors.Is(err, domain.ErrSnapshotConflict):
		if _, gerr := s.store.Get(ctx, domain.CollectionOverlays, req.IntervalID); gerr == nil {
			s.metrics.RecordIngest("conflict")
			return nil, domain.ErrSnapshotConflict.WithDetails("interval " + req.IntervalID.String() + " already ingested")
		} else if !errors.Is(gerr, domain.ErrSnapshotNotFound) {
			return nil, s.fail(gerr)
		}
		s.logger.Info("completing half-written interval", "interval_id", req.IntervalID)
	default:
		return nil, s.fail(err)
	}

	if err := s.store.Insert(ctx, over); err != nil {
		if errors.Is(err, domain.ErrSnapshotConflict) {
			s.metrics.RecordIngest("conflict")
			return nil, err
		}
		return nil, s.fail(err)
	}
	res.Inserted = append(res.Inserted, domain.CollectionOverlays)

	s.metrics.RecordIngest("ok")
	s.logger.Info("interval ingested",
		"interval_id", req.IntervalID,
		"overlays_bytes", len(req.Overlays),
		"topology_bytes", len(req.Topology))
	return res, nil
}

func (s *IngestService) fail(err error) error {
	s.metrics.RecordIngest("error")
	s.logger.Error("ingest failed", "error", err)
	return err
}
