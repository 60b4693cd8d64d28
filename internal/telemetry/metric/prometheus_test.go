package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.QueriesTotal == nil || r.PendingQueries == nil || r.WaitOutcomes == nil {
		t.Error("query and wait metrics must be initialized")
	}
	if r.RequestsTotal == nil || r.RequestDuration == nil {
		t.Error("request metrics must be initialized")
	}
}

func TestGlobal(t *testing.T) {
	r1 := Global()
	r2 := Global()
	if r1 != r2 {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	h := Handler()
	if h == nil {
		t.Fatal("Handler() returned nil")
	}

	body := scrape(t, h)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestQueryAndWaitMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordQuery("Overlays", "hit")
	r.RecordQuery("Overlays", "hit")
	r.RecordQuery("Overlays", "miss")

	r.IncPending()
	r.IncPending()
	r.DecPending()

	r.RecordWait("resolved", 0.2)
	r.RecordWait("timeout", 10)

	body := scrape(t, r.Handler())

	want := []string{
		`meshview_queries_total{collection="Overlays",result="hit"} 2`,
		`meshview_queries_total{collection="Overlays",result="miss"} 1`,
		`meshview_pending_queries 1`,
		`meshview_wait_outcomes_total{outcome="resolved"} 1`,
		`meshview_wait_outcomes_total{outcome="timeout"} 1`,
		`meshview_wait_duration_seconds_count 2`,
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("expected %s", w)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("GET", "/overlays", "200")
	r.RecordRequest("GET", "/overlays", "204")
	r.RecordRequest("PUT", "/snapshots/{interval}", "409")
	r.ObserveRequestDuration("GET", "/overlays", 0.005)

	body := scrape(t, r.Handler())

	if !strings.Contains(body, `meshview_http_requests_total{method="GET",route="/overlays",status="200"} 1`) {
		t.Error("expected request counter for GET /overlays 200")
	}
	if !strings.Contains(body, `meshview_http_requests_total{method="PUT",route="/snapshots/{interval}",status="409"} 1`) {
		t.Error("expected request counter for PUT /snapshots 409")
	}
	if !strings.Contains(body, "meshview_http_request_duration_seconds_bucket") {
		t.Error("expected request duration histogram")
	}
}

func TestIngestAndRelayMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordIngest("ok")
	r.RecordIngest("conflict")
	r.RecordRelayPublish("Overlays", "ok")

	body := scrape(t, r.Handler())

	if !strings.Contains(body, `meshview_ingest_total{result="conflict"} 1`) {
		t.Error("expected ingest conflict counter")
	}
	if !strings.Contains(body, `meshview_relay_published_total{collection="Overlays",result="ok"} 1`) {
		t.Error("expected relay counter")
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry

	// None of these may panic.
	r.RecordQuery("Overlays", "hit")
	r.IncPending()
	r.DecPending()
	r.RecordWait("timeout", 1)
	r.RecordIngest("ok")
	r.RecordRequest("GET", "/", "200")
	r.ObserveRequestDuration("GET", "/", 0.1)
	r.RecordRelayPublish("Overlays", "ok")
}

type fakeFeedStats struct{}

func (fakeFeedStats) Subscribers(col domain.Collection) int {
	if col == domain.CollectionOverlays {
		return 3
	}
	return 0
}

func (fakeFeedStats) Published(col domain.Collection) uint64 {
	if col == domain.CollectionOverlays {
		return 42
	}
	return 7
}

func TestCollector(t *testing.T) {
	r := NewRegistry()
	r.Registerer().MustRegister(NewCollector(fakeFeedStats{}))

	body := scrape(t, r.Handler())

	want := []string{
		`meshview_snapshots_inserted_total{collection="Overlays"} 42`,
		`meshview_snapshots_inserted_total{collection="Topology"} 7`,
		`meshview_changefeed_subscribers{collection="Overlays"} 3`,
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("expected %s", w)
		}
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.IncPending()
				r.RecordQuery("Overlays", "miss")
				r.RecordRequest("GET", "/overlays", "200")
				r.ObserveRequestDuration("GET", "/overlays", 0.001)
				r.DecPending()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "meshview_pending_queries 0") {
		t.Error("expected pending gauge back at 0")
	}
}
