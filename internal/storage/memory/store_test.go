package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

func TestStore_InsertAndLookup(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, id := range []domain.IntervalID{30, 10, 20} {
		snap := domain.NewSnapshot(domain.CollectionOverlays, id, []byte(`{"id":1}`))
		if err := store.Insert(ctx, snap); err != nil {
			t.Fatalf("Insert(%d): %v", id, err)
		}
	}

	latest, err := store.Latest(ctx, domain.CollectionOverlays)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.IntervalID != 30 {
		t.Errorf("Latest = %d, want 30", latest.IntervalID)
	}

	next, err := store.After(ctx, domain.CollectionOverlays, 10)
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if next.IntervalID != 20 {
		t.Errorf("After(10) = %d, want 20", next.IntervalID)
	}

	if _, err := store.After(ctx, domain.CollectionOverlays, 30); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("After(30) error = %v, want ErrSnapshotNotFound", err)
	}

	metas, err := store.List(ctx, domain.CollectionOverlays)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 || metas[0].IntervalID != 10 || metas[2].IntervalID != 30 {
		t.Errorf("List = %+v, want ids [10 20 30]", metas)
	}

	if _, err := store.Latest(ctx, domain.CollectionTopology); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("Latest(Topology) error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_Duplicate(t *testing.T) {
	store := New()
	ctx := context.Background()

	first := domain.NewSnapshot(domain.CollectionOverlays, 1, []byte(`{"v":1}`))
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	dup := domain.NewSnapshot(domain.CollectionOverlays, 1, []byte(`{"v":2}`))
	if err := store.Insert(ctx, dup); !errors.Is(err, domain.ErrSnapshotConflict) {
		t.Fatalf("Insert duplicate error = %v, want ErrSnapshotConflict", err)
	}

	got, _ := store.Get(ctx, domain.CollectionOverlays, 1)
	if string(got.Payload) != `{"v":1}` {
		t.Errorf("duplicate insert must not overwrite, got %s", got.Payload)
	}

	// Same id in another collection is allowed.
	other := domain.NewSnapshot(domain.CollectionTopology, 1, []byte(`[]`))
	if err := store.Insert(ctx, other); err != nil {
		t.Errorf("Insert into Topology: %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	payload := []byte(`{"a":1}`)
	if err := store.Insert(ctx, domain.NewSnapshot(domain.CollectionOverlays, 1, payload)); err != nil {
		t.Fatal(err)
	}
	payload[2] = 'z'

	got, _ := store.Latest(ctx, domain.CollectionOverlays)
	if string(got.Payload) != `{"a":1}` {
		t.Fatalf("stored payload changed through caller slice: %s", got.Payload)
	}

	got.Payload[2] = 'z'
	again, _ := store.Latest(ctx, domain.CollectionOverlays)
	if string(again.Payload) != `{"a":1}` {
		t.Errorf("stored payload changed through returned snapshot: %s", again.Payload)
	}
}

func TestStore_Stats(t *testing.T) {
	store := New()
	ctx := context.Background()

	_ = store.Insert(ctx, domain.NewSnapshot(domain.CollectionOverlays, 1, []byte(`{}`)))
	_ = store.Insert(ctx, domain.NewSnapshot(domain.CollectionTopology, 1, []byte(`[1,2]`)))

	st := store.Stats()
	if st.Snapshots != 2 {
		t.Errorf("Snapshots = %d, want 2", st.Snapshots)
	}
	if st.PayloadBytes != 7 {
		t.Errorf("PayloadBytes = %d, want 7", st.PayloadBytes)
	}
}

func TestStore_Closed(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping before close: %v", err)
	}
	_ = store.Close()

	if err := store.Ping(ctx); err == nil {
		t.Error("Ping after close should fail")
	}
	if _, err := store.Latest(ctx, domain.CollectionOverlays); err == nil || errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("Latest after close error = %v, want a hard failure", err)
	}
}

func TestStore_UnknownCollection(t *testing.T) {
	store := New()
	_, err := store.Latest(context.Background(), domain.Collection("Nodes"))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}
