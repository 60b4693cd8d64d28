package domain

import (
	"sync/atomic"
	"time"
)

// PendingState is the lifecycle state of a PendingQuery.
type PendingState int32

const (
	// PendingWaiting means the query is registered and waiting for an insert.
	PendingWaiting PendingState = iota

	// PendingResolved means a matching snapshot answered the query.
	PendingResolved

	// PendingTimedOut means the wait bound elapsed first.
	PendingTimedOut

	// PendingCancelled means the caller went away first.
	PendingCancelled
)

// String returns the lower-case state name used in logs and metrics.
func (s PendingState) String() string {
	switch s {
	case PendingWaiting:
		return "waiting"
	case PendingResolved:
		return "resolved"
	case PendingTimedOut:
		return "timeout"
	case PendingCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s PendingState) Terminal() bool {
	return s != PendingWaiting
}

// PendingQuery is an in-flight request waiting for a snapshot that does not
// exist yet. The first transition out of Waiting wins; every later attempt
// returns false and leaves the state untouched.
type PendingQuery struct {
	// Collection is the stream being waited on.
	Collection Collection

	// After is the exclusive lower bound. Nil means any insert.
	After *IntervalID

	// CreatedAt is when the query entered Waiting.
	CreatedAt time.Time

	state    atomic.Int32
	result   *Snapshot
	finished time.Time
}

// NewPendingQuery creates a query in the Waiting state.
func NewPendingQuery(col Collection, after *IntervalID) *PendingQuery {
	return &PendingQuery{
		Collection: col,
		After:      after,
		CreatedAt:  time.Now(),
	}
}

// Matches reports whether an inserted snapshot answers this query.
func (q *PendingQuery) Matches(s *Snapshot) bool {
	if s == nil || s.Collection != q.Collection {
		return false
	}
	return q.After == nil || s.IntervalID > *q.After
}

// State returns the current state.
func (q *PendingQuery) State() PendingState {
	return PendingState(q.state.Load())
}

// Resolve moves Waiting to Resolved with the given snapshot.
func (q *PendingQuery) Resolve(s *Snapshot) bool {
	if !q.transition(PendingResolved) {
		return false
	}
	q.result = s
	return true
}

// TimeOut moves Waiting to TimedOut.
func (q *PendingQuery) TimeOut() bool {
	return q.transition(PendingTimedOut)
}

// Cancel moves Waiting to Cancelled.
func (q *PendingQuery) Cancel() bool {
	return q.transition(PendingCancelled)
}

// Result returns the resolving snapshot, or nil if the query did not resolve.
// Only the goroutine that won the transition may rely on it before it returns.
func (q *PendingQuery) Result() *Snapshot {
	if q.State() != PendingResolved {
		return nil
	}
	return q.result
}

// Elapsed returns how long the query waited, up to its terminal transition.
func (q *PendingQuery) Elapsed() time.Duration {
	if q.finished.IsZero() {
		return time.Since(q.CreatedAt)
	}
	return q.finished.Sub(q.CreatedAt)
}

func (q *PendingQuery) transition(to PendingState) bool {
	if !q.state.CompareAndSwap(int32(PendingWaiting), int32(to)) {
		return false
	}
	q.finished = time.Now()
	return true
}
