package domain

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spaolacci/murmur3"
)

// IntervalID is the logical timestamp that keys a snapshot.
// It is unique per collection and orders snapshots.
type IntervalID int64

// String returns the decimal form of the interval id.
func (id IntervalID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseIntervalID parses a decimal interval id.
func ParseIntervalID(s string) (IntervalID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidArgument.WithDetails("interval must be an integer").WithCause(err)
	}
	return IntervalID(v), nil
}

// ParseIntervalParam parses the interval query parameter of the read API
// the way a browser's parseFloat does: the longest leading numeric prefix
// counts and the rest is ignored, so "5abc" is 5. Input without a numeric
// prefix ("", "NaN", "undefined") means "latest" and returns nil. Finite
// values are floored, so a fractional bound keeps strict-after semantics.
// Infinities and values outside the IntervalID range are rejected.
func ParseIntervalParam(s string) (*IntervalID, error) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil, nil
	}
	// Overflow yields ±Inf, which the range check rejects.
	f, _ := strconv.ParseFloat(m, 64)
	f = math.Floor(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, ErrInvalidArgument.WithDetails("interval out of range")
	}
	id := IntervalID(f)
	return &id, nil
}

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// Collection names one of the logical snapshot streams.
type Collection string

const (
	// CollectionOverlays holds the overlay graph per collection period.
	CollectionOverlays Collection = "Overlays"

	// CollectionTopology holds the topology graph per collection period.
	CollectionTopology Collection = "Topology"
)

// Collections lists every known collection in a stable order.
var Collections = []Collection{CollectionOverlays, CollectionTopology}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == CollectionOverlays || c == CollectionTopology
}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", ErrInvalidArgument.WithDetails("unknown collection: " + s)
	}
	return c, nil
}

// Snapshot is one immutable stored record for a collection period.
type Snapshot struct {
	// IntervalID is the primary key inside the collection.
	IntervalID IntervalID `json:"intervalId"`

	// Collection is the stream the snapshot belongs to.
	Collection Collection `json:"collection"`

	// Payload is the opaque JSON document (overlay or topology graph).
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the insert timestamp (Unix milliseconds).
	CreatedAt int64 `json:"createdAt"`
}

// NewSnapshot creates a snapshot stamped with the current time.
func NewSnapshot(col Collection, id IntervalID, payload []byte) *Snapshot {
	return &Snapshot{
		IntervalID: id,
		Collection: col,
		Payload:    payload,
		CreatedAt:  time.Now().UnixMilli(),
	}
}

// Validate checks the collection and that the payload is a JSON document.
func (s *Snapshot) Validate() error {
	if !s.Collection.Valid() {
		return ErrSnapshotInvalid.WithDetails("unknown collection: " + string(s.Collection))
	}
	if len(bytes.TrimSpace(s.Payload)) == 0 {
		return ErrSnapshotInvalid.WithDetails("payload is empty")
	}
	if !jsoniter.Valid(s.Payload) {
		return ErrSnapshotInvalid.WithDetails("payload is not valid JSON")
	}
	return nil
}

// Meta builds the listing view of the snapshot.
func (s *Snapshot) Meta() SnapshotMeta {
	return SnapshotMeta{
		IntervalID: s.IntervalID,
		CreatedAt:  s.CreatedAt,
		SizeBytes:  int64(len(s.Payload)),
		Checksum:   Checksum(s.Payload),
		Items:      countItems(s.Payload),
	}
}

// CreatedAtTime returns CreatedAt as time.Time.
func (s *Snapshot) CreatedAtTime() time.Time {
	return time.UnixMilli(s.CreatedAt)
}

// Clone returns a deep copy, so callers can never mutate stored payloads.
func (s *Snapshot) Clone() *Snapshot {
	clone := *s
	if s.Payload != nil {
		clone.Payload = append(json.RawMessage(nil), s.Payload...)
	}
	return &clone
}

// SnapshotMeta is the summary of a snapshot without its payload body.
type SnapshotMeta struct {
	IntervalID IntervalID `json:"intervalId"`
	CreatedAt  int64      `json:"createdAt"`
	SizeBytes  int64      `json:"sizeBytes"`
	Checksum   string     `json:"checksum"`
	Items      int        `json:"items"`
}

// CreatedAtTime returns CreatedAt as time.Time.
func (m SnapshotMeta) CreatedAtTime() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Checksum returns the hex murmur3 128-bit digest of a payload.
func Checksum(payload []byte) string {
	h1, h2 := murmur3.Sum128(payload)
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(h1 >> (56 - 8*i))
		buf[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:])
}

// countItems returns the element count of a top-level array, the key count
// of a top-level object, and 0 for anything else.
func countItems(payload []byte) int {
	iter := jsoniter.ConfigFastest.BorrowIterator(payload)
	defer jsoniter.ConfigFastest.ReturnIterator(iter)

	n := 0
	switch iter.WhatIsNext() {
	case jsoniter.ArrayValue:
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			it.Skip()
			n++
			return true
		})
	case jsoniter.ObjectValue:
		iter.ReadObjectCB(func(it *jsoniter.Iterator, _ string) bool {
			it.Skip()
			n++
			return true
		})
	default:
		return 0
	}
	if iter.Error != nil {
		return 0
	}
	return n
}
