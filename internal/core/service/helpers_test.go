package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/storage"
	"github.com/yndnr/meshview-go/internal/storage/memory"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.NewStore(memory.New(), nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestAwaiter(t *testing.T, s *storage.Store, timeout time.Duration) (*Awaiter, *metric.Registry) {
	t.Helper()
	m := metric.NewRegistry()
	q := NewQueryService(s, m, nil)
	return NewAwaiter(q, s, AwaiterConfig{Timeout: timeout, MaxTimeout: 5 * time.Second}, m, nil), m
}

func put(t *testing.T, s *storage.Store, col domain.Collection, id domain.IntervalID, payload string) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), domain.NewSnapshot(col, id, []byte(payload))))
}

func idPtr(v domain.IntervalID) *domain.IntervalID {
	return &v
}

func durPtr(d time.Duration) *time.Duration {
	return &d
}

// waitForSubscribers polls until col has n observers.
func waitForSubscribers(t *testing.T, s *storage.Store, col domain.Collection, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Subscribers(col) == n
	}, 2*time.Second, time.Millisecond, "subscribers on %s never reached %d", col, n)
}

// metricValue reads the current value of a counter or gauge.
func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}
