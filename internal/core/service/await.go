package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/storage/changefeed"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

// Default wait bounds.
const (
	DefaultWaitTimeout    = 10 * time.Second
	DefaultWaitMaxTimeout = 60 * time.Second
)

// Subscriber registers one-shot observers on a collection's insert stream.
type Subscriber interface {
	Subscribe(col domain.Collection, match changefeed.MatchFunc) (*changefeed.Subscription, error)
}

// AwaiterConfig bounds the wait.
type AwaiterConfig struct {
	// Timeout applies when the request does not carry its own.
	Timeout time.Duration
	// MaxTimeout caps request-supplied timeouts.
	MaxTimeout time.Duration
}

// AwaitRequest describes one read.
type AwaitRequest struct {
	Collection domain.Collection

	// After is the exclusive lower bound. Nil asks for the latest snapshot.
	After *domain.IntervalID

	// Wait overrides the default timeout. Nil uses the default; zero
	// disables waiting.
	Wait *time.Duration
}

// Awaiter answers a query immediately when possible and otherwise waits,
// bounded, for the first matching insert.
type Awaiter struct {
	queries    *QueryService
	subscriber Subscriber
	timeout    time.Duration
	maxTimeout time.Duration
	metrics    *metric.Registry
	logger     *slog.Logger
}

// NewAwaiter creates an Awaiter. Non-positive bounds fall back to the defaults.
func NewAwaiter(queries *QueryService, subscriber Subscriber, cfg AwaiterConfig, metrics *metric.Registry, logger *slog.Logger) *Awaiter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWaitTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = DefaultWaitMaxTimeout
	}
	if cfg.MaxTimeout < cfg.Timeout {
		cfg.MaxTimeout = cfg.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Awaiter{
		queries:    queries,
		subscriber: subscriber,
		timeout:    cfg.Timeout,
		maxTimeout: cfg.MaxTimeout,
		metrics:    metrics,
		logger:     logger.With("component", "awaiter"),
	}
}

// MaxTimeout returns the upper bound of any wait.
func (a *Awaiter) MaxTimeout() time.Duration {
	return a.maxTimeout
}

// Timeout resolves the effective wait for a request: nil means the default,
// negative means zero, and anything above the cap is clamped to it.
func (a *Awaiter) Timeout(requested *time.Duration) time.Duration {
	if requested == nil {
		return a.timeout
	}
	d := *requested
	if d < 0 {
		return 0
	}
	if d > a.maxTimeout {
		return a.maxTimeout
	}
	return d
}

// Await returns the snapshot for req.
//
// Errors:
//   - domain.ErrWaitTimeout when nothing matching arrived within the bound
//   - domain.ErrWaitClosed when the store shut down during the wait
//   - ctx.Err() when the caller went away
//   - any non-miss query error, returned without waiting
func (a *Awaiter) Await(ctx context.Context, req AwaitRequest) (*domain.Snapshot, error) {
	snap, err := a.queries.Query(ctx, req.Collection, req.After)
	if err == nil || !errors.Is(err, domain.ErrSnapshotNotFound) {
		return snap, err
	}

	timeout := a.Timeout(req.Wait)
	if timeout == 0 {
		a.metrics.RecordWait(domain.PendingTimedOut.String(), 0)
		return nil, domain.ErrWaitTimeout
	}

	pq := domain.NewPendingQuery(req.Collection, req.After)
	sub, err := a.subscriber.Subscribe(req.Collection, pq.Matches)
	if err != nil {
		return nil, err
	}
	defer sub.Cancel()

	a.metrics.IncPending()
	defer a.metrics.DecPending()

	// An insert that committed between the first miss and Subscribe was
	// published before this observer existed.
	snap, err = a.queries.queryFresh(ctx, req.Collection, req.After)
	switch {
	case err == nil:
		pq.Resolve(snap)
		return a.finish(pq)
	case !errors.Is(err, domain.ErrSnapshotNotFound):
		pq.Cancel()
		a.finish(pq)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case snap, ok := <-sub.C():
		if !ok {
			pq.Cancel()
			a.finish(pq)
			return nil, domain.ErrWaitClosed
		}
		pq.Resolve(snap)
	case <-timer.C:
		pq.TimeOut()
	case <-ctx.Done():
		pq.Cancel()
		a.finish(pq)
		return nil, ctx.Err()
	}

	return a.finish(pq)
}

// finish records the outcome and maps the terminal state to a result.
func (a *Awaiter) finish(pq *domain.PendingQuery) (*domain.Snapshot, error) {
	state := pq.State()
	elapsed := pq.Elapsed()
	a.metrics.RecordWait(state.String(), elapsed.Seconds())

	a.logger.Debug("wait finished",
		"collection", pq.Collection,
		"outcome", state.String(),
		"elapsed", elapsed)

	switch state {
	case domain.PendingResolved:
		return pq.Result(), nil
	case domain.PendingTimedOut:
		return nil, domain.ErrWaitTimeout
	default:
		return nil, domain.ErrWaitClosed
	}
}
