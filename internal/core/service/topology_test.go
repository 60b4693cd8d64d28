package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

const topoDoc = `[
	{"OverlayId":"ov-1","Nodes":[1,2]},
	{"OverlayId":"ov-2","Nodes":[3]},
	{"OverlayId":"ov-1","Nodes":[4]}
]`

func TestTopologyService_Get(t *testing.T) {
	s := newTestStore(t)
	put(t, s, domain.CollectionTopology, 9, topoDoc)
	put(t, s, domain.CollectionTopology, 10, `{"not":"array"}`)
	svc := NewTopologyService(s)
	ctx := context.Background()

	t.Run("whole document", func(t *testing.T) {
		snap, err := svc.Get(ctx, 9, "")
		require.NoError(t, err)
		assert.JSONEq(t, topoDoc, string(snap.Payload))
	})

	t.Run("filtered", func(t *testing.T) {
		snap, err := svc.Get(ctx, 9, "ov-1")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"OverlayId":"ov-1","Nodes":[1,2]},{"OverlayId":"ov-1","Nodes":[4]}]`, string(snap.Payload))

		orig, err := s.Get(ctx, domain.CollectionTopology, 9)
		require.NoError(t, err)
		assert.JSONEq(t, topoDoc, string(orig.Payload), "filtering must not touch the stored document")
	})

	t.Run("unknown overlay", func(t *testing.T) {
		_, err := svc.Get(ctx, 9, "ov-3")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("unknown interval", func(t *testing.T) {
		_, err := svc.Get(ctx, 8, "")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("filter on object payload", func(t *testing.T) {
		_, err := svc.Get(ctx, 10, "ov-1")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
