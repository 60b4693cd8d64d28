// Package changefeed fans insert notifications out to subscribers.
package changefeed

import (
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// MatchFunc decides whether a published snapshot is delivered to a subscriber.
// A nil MatchFunc accepts everything.
type MatchFunc func(*domain.Snapshot) bool

// Subscription is a registered observer on a Feed.
//
// One-shot subscriptions receive at most one snapshot and are removed from
// the feed as part of that delivery. Persistent subscriptions stay until
// cancelled and drop notifications when their buffer is full.
type Subscription struct {
	id      uint64
	feed    *Feed
	ch      chan *domain.Snapshot
	match   MatchFunc
	oneShot bool

	delivered atomic.Bool
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// C returns the delivery channel. It is closed only when the feed closes.
func (s *Subscription) C() <-chan *domain.Snapshot {
	return s.ch
}

// Cancel unregisters the subscription. It is safe to call more than once
// and after the subscription has already fired.
func (s *Subscription) Cancel() {
	s.feed.remove(s.id)
}

// Dropped returns how many notifications a persistent subscription missed
// because its buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Feed is the insert-notification stream of one collection.
//
// Publish never blocks: one-shot channels have room for their single
// delivery and persistent channels drop on overflow. Subscribers are
// visited in registration order.
type Feed struct {
	name string

	mu     sync.Mutex
	closed bool
	nextID uint64
	subs   *skipmap.FuncMap[uint64, *Subscription]

	published atomic.Uint64
}

// New creates an empty feed. The name is used for diagnostics only.
func New(name string) *Feed {
	return &Feed{
		name: name,
		subs: skipmap.NewFunc[uint64, *Subscription](func(a, b uint64) bool {
			return a < b
		}),
	}
}

// Name returns the feed name.
func (f *Feed) Name() string {
	return f.name
}

// Subscribe registers a one-shot observer. The returned channel has
// capacity 1 and receives the first published snapshot accepted by match.
// Subscribing to a closed feed returns an already closed channel.
func (f *Feed) Subscribe(match MatchFunc) *Subscription {
	return f.register(match, 1, true)
}

// Watch registers a persistent observer with the given buffer size.
func (f *Feed) Watch(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	return f.register(nil, buffer, false)
}

func (f *Feed) register(match MatchFunc, buffer int, oneShot bool) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{
		id:      f.nextID,
		feed:    f,
		ch:      make(chan *domain.Snapshot, buffer),
		match:   match,
		oneShot: oneShot,
	}
	if f.closed {
		sub.close()
		return sub
	}
	f.subs.Store(sub.id, sub)
	return sub
}

// Publish delivers snap to every matching subscriber.
// Callers publish in commit order; Publish preserves it per subscriber.
func (f *Feed) Publish(snap *domain.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.published.Add(1)

	f.subs.Range(func(id uint64, sub *Subscription) bool {
		if sub.match != nil && !sub.match(snap) {
			return true
		}
		if sub.oneShot {
			if sub.delivered.CompareAndSwap(false, true) {
				sub.ch <- snap
				f.subs.Delete(id)
			}
			return true
		}
		select {
		case sub.ch <- snap:
		default:
			sub.dropped.Add(1)
		}
		return true
	})
}

// Len returns the number of registered subscribers.
func (f *Feed) Len() int {
	return f.subs.Len()
}

// Published returns how many snapshots were published on the feed.
func (f *Feed) Published() uint64 {
	return f.published.Load()
}

// Close closes every subscriber channel and rejects later publishes.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.subs.Range(func(id uint64, sub *Subscription) bool {
		sub.close()
		f.subs.Delete(id)
		return true
	})
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs.Delete(id)
}
