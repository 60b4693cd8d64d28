package storage

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

func TestEncodeIntervalID_PreservesOrder(t *testing.T) {
	ids := []domain.IntervalID{
		math.MinInt64, -1 << 40, -2, -1, 0, 1, 2, 1700000000, 1 << 40, math.MaxInt64,
	}

	encoded := make([][]byte, len(ids))
	for i, id := range ids {
		encoded[i] = EncodeIntervalID(id)
	}

	if !sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}) {
		t.Fatal("encoded ids are not in numeric order")
	}

	for i, id := range ids {
		got, err := DecodeIntervalID(encoded[i])
		if err != nil {
			t.Fatalf("DecodeIntervalID(%d): %v", id, err)
		}
		if got != id {
			t.Errorf("DecodeIntervalID(EncodeIntervalID(%d)) = %d", id, got)
		}
	}
}

func TestDecodeIntervalID_BadLength(t *testing.T) {
	if _, err := DecodeIntervalID([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeIntervalID should reject short input")
	}
}

func TestCollectionPrefixesDoNotOverlap(t *testing.T) {
	overlays := collectionPrefix(snapshotKeyTag, domain.CollectionOverlays)
	topology := collectionPrefix(snapshotKeyTag, domain.CollectionTopology)
	metas := collectionPrefix(metaKeyTag, domain.CollectionOverlays)

	key := snapshotKey(domain.CollectionOverlays, 42)
	if !bytes.HasPrefix(key, overlays) {
		t.Error("snapshot key should start with its collection prefix")
	}
	if bytes.HasPrefix(key, topology) || bytes.HasPrefix(key, metas) {
		t.Error("snapshot key must not match another prefix")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"empty", nil, nil},
		{"simple", []byte("s/"), []byte("s0")},
		{"trailing ff", []byte{'a', 0xFF}, []byte{'b'}},
		{"all ff", []byte{0xFF, 0xFF}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prefixUpperBound(tt.prefix); !bytes.Equal(got, tt.want) {
				t.Errorf("prefixUpperBound(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}
