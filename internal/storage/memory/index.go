package memory

import (
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

type entry struct {
	snap *domain.Snapshot
	meta domain.SnapshotMeta
}

// collectionIndex is the ordered record set of one collection.
type collectionIndex struct {
	mu      sync.Mutex
	byID    *skipmap.FuncMap[domain.IntervalID, *entry]
	latest  atomic.Pointer[entry]
	payload atomic.Int64
}

func newCollectionIndex() *collectionIndex {
	return &collectionIndex{
		byID: skipmap.NewFunc[domain.IntervalID, *entry](func(a, b domain.IntervalID) bool {
			return a < b
		}),
	}
}

// add stores snap unless its id is taken. Returns false on duplicates.
func (c *collectionIndex) add(snap *domain.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{snap: snap, meta: snap.Meta()}
	if _, loaded := c.byID.LoadOrStore(snap.IntervalID, e); loaded {
		return false
	}
	if cur := c.latest.Load(); cur == nil || snap.IntervalID > cur.snap.IntervalID {
		c.latest.Store(e)
	}
	c.payload.Add(int64(len(snap.Payload)))
	return true
}

func (c *collectionIndex) get(id domain.IntervalID) (*domain.Snapshot, bool) {
	e, ok := c.byID.Load(id)
	if !ok {
		return nil, false
	}
	return e.snap, true
}

func (c *collectionIndex) last() (*domain.Snapshot, bool) {
	e := c.latest.Load()
	if e == nil {
		return nil, false
	}
	return e.snap, true
}

// after walks the ordered list to the first id greater than id.
func (c *collectionIndex) after(id domain.IntervalID) (*domain.Snapshot, bool) {
	var found *domain.Snapshot
	c.byID.Range(func(k domain.IntervalID, e *entry) bool {
		if k > id {
			found = e.snap
			return false
		}
		return true
	})
	return found, found != nil
}

func (c *collectionIndex) metas() []domain.SnapshotMeta {
	out := make([]domain.SnapshotMeta, 0, c.byID.Len())
	c.byID.Range(func(_ domain.IntervalID, e *entry) bool {
		out = append(out, e.meta)
		return true
	})
	return out
}

func (c *collectionIndex) len() int {
	return c.byID.Len()
}
