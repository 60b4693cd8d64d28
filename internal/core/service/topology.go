package service

import (
	"context"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

var topoJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// TopologyService serves the detailed topology of one interval.
type TopologyService struct {
	store SnapshotReader
}

// NewTopologyService creates a TopologyService.
func NewTopologyService(store SnapshotReader) *TopologyService {
	return &TopologyService{store: store}
}

// Get returns the topology snapshot stored at exactly id. When overlayID is
// not empty the payload must be a JSON array and only entries whose
// "OverlayId" equals overlayID are kept; the result is a copy.
func (s *TopologyService) Get(ctx context.Context, id domain.IntervalID, overlayID string) (*domain.Snapshot, error) {
	snap, err := s.store.Get(ctx, domain.CollectionTopology, id)
	if err != nil {
		return nil, err
	}
	if overlayID == "" {
		return snap, nil
	}

	var entries []json.RawMessage
	if err := topoJSON.Unmarshal(snap.Payload, &entries); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("topology payload is not an array; overlay filter not applicable")
	}

	kept := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if topoJSON.Get(e, "OverlayId").ToString() == overlayID {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return nil, domain.ErrSnapshotNotFound.WithDetails("overlay " + overlayID + " not in interval " + id.String())
	}

	payload, err := topoJSON.Marshal(kept)
	if err != nil {
		return nil, err
	}
	out := snap.Clone()
	out.Payload = payload
	return out, nil
}
