package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// Key layout:
//
//	s/<collection>/<id>  full snapshot record
//	m/<collection>/<id>  SnapshotMeta record
//
// <id> is the interval id as 8 big-endian bytes with the sign bit flipped,
// so bytewise key order equals numeric order, negative ids included.
const (
	snapshotKeyTag = 's'
	metaKeyTag     = 'm'
	idKeySize      = 8
)

const signBit = uint64(1) << 63

// EncodeIntervalID encodes id into its order-preserving 8-byte form.
func EncodeIntervalID(id domain.IntervalID) []byte {
	buf := make([]byte, idKeySize)
	binary.BigEndian.PutUint64(buf, uint64(id)^signBit)
	return buf
}

// DecodeIntervalID reverses EncodeIntervalID.
func DecodeIntervalID(b []byte) (domain.IntervalID, error) {
	if len(b) != idKeySize {
		return 0, fmt.Errorf("interval key: want %d bytes, got %d", idKeySize, len(b))
	}
	return domain.IntervalID(binary.BigEndian.Uint64(b) ^ signBit), nil
}

func collectionPrefix(tag byte, col domain.Collection) []byte {
	prefix := make([]byte, 0, len(col)+3)
	prefix = append(prefix, tag, '/')
	prefix = append(prefix, col...)
	return append(prefix, '/')
}

func recordKey(tag byte, col domain.Collection, id domain.IntervalID) []byte {
	return append(collectionPrefix(tag, col), EncodeIntervalID(id)...)
}

func snapshotKey(col domain.Collection, id domain.IntervalID) []byte {
	return recordKey(snapshotKeyTag, col, id)
}

func metaKey(col domain.Collection, id domain.IntervalID) []byte {
	return recordKey(metaKeyTag, col, id)
}
