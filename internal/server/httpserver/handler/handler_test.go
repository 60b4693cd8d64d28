package handler

import (
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/core/service"
	"github.com/yndnr/meshview-go/internal/storage"
	"github.com/yndnr/meshview-go/internal/storage/memory"
)

type fixture struct {
	h     *Handler
	store *storage.Store
}

func newFixture(t *testing.T, tokenHash string) *fixture {
	t.Helper()
	store := storage.NewStore(memory.New(), nil)
	t.Cleanup(func() { _ = store.Close() })

	queries := service.NewQueryService(store, nil, nil)
	h := New(Config{
		Queries: queries,
		Awaiter: service.NewAwaiter(queries, store, service.AwaiterConfig{
			Timeout:    300 * time.Millisecond,
			MaxTimeout: time.Second,
		}, nil, nil),
		Topology: service.NewTopologyService(store),
		Ingest:   service.NewIngestService(store, nil, nil),
		Auth:     service.NewIngestAuth(tokenHash, time.Minute),
		Store:    store,
	})
	return &fixture{h: h, store: store}
}

func (f *fixture) insert(t *testing.T, col domain.Collection, id domain.IntervalID, payload string) {
	t.Helper()
	if err := f.store.Insert(context.Background(), domain.NewSnapshot(col, id, []byte(payload))); err != nil {
		t.Fatalf("Insert(%s, %d) error = %v", col, id, err)
	}
}

func (f *fixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	if err := stdjson.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := stdjson.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t, "")

	t.Run("GET /health returns healthy status", func(t *testing.T) {
		rec := f.do("GET", "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		resp := decodeEnvelope(t, rec)
		if resp.Code != "OK" {
			t.Errorf("expected code 'OK', got '%s'", resp.Code)
		}
		data, ok := resp.Data.(map[string]any)
		if !ok {
			t.Fatal("expected data to be a map")
		}
		if data["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%v'", data["status"])
		}
	})

	t.Run("GET /ready checks the store", func(t *testing.T) {
		if rec := f.do("GET", "/ready", ""); rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		_ = f.store.Close()
		rec := f.do("GET", "/ready", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503 after close, got %d", rec.Code)
		}
		if got := rec.Header().Get(HeaderErrorCode); got != "MV-SYS-5030" {
			t.Errorf("X-Error-Code = %q, want MV-SYS-5030", got)
		}
	})
}

func TestHandler_Intervals(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do("GET", "/intervals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty store body = %q, want []", got)
	}

	f.insert(t, domain.CollectionOverlays, 20, `[1,2,3]`)
	f.insert(t, domain.CollectionOverlays, 10, `{}`)
	f.insert(t, domain.CollectionTopology, 30, `[]`)

	rec = f.do("GET", "/intervals", "")
	var metas []domain.SnapshotMeta
	if err := stdjson.NewDecoder(rec.Body).Decode(&metas); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len(metas) = %d, want 2", len(metas))
	}
	if metas[0].IntervalID != 10 || metas[1].IntervalID != 20 {
		t.Errorf("ids = %d,%d, want 10,20", metas[0].IntervalID, metas[1].IntervalID)
	}
	if metas[1].Items != 3 || metas[1].Checksum == "" {
		t.Errorf("summary = %+v, want items=3 and a checksum", metas[1])
	}
	if strings.Contains(rec.Body.String(), "payload") {
		t.Error("listing must not include payloads")
	}
}

func TestHandler_Intervals_StoreError(t *testing.T) {
	f := newFixture(t, "")
	_ = f.store.Close()

	rec := f.do("GET", "/intervals", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Message == "" {
		t.Error("expected an error message")
	}
	if resp.Code != domain.ErrStorageError.Code {
		t.Errorf("code = %q, want %q", resp.Code, domain.ErrStorageError.Code)
	}
}

func TestHandler_Overlays(t *testing.T) {
	f := newFixture(t, "")
	for id := domain.IntervalID(1); id <= 5; id++ {
		f.insert(t, domain.CollectionOverlays, id, `{"id":`+id.String()+`}`)
	}

	tests := []struct {
		name   string
		target string
		want   domain.IntervalID
	}{
		{"latest", "/overlays", 5},
		{"empty interval", "/overlays?interval=", 5},
		{"nan interval", "/overlays?interval=NaN", 5},
		{"undefined interval", "/overlays?interval=undefined", 5},
		{"non-numeric interval", "/overlays?interval=abc", 5},
		{"numeric prefix", "/overlays?interval=2abc", 3},
		{"after", "/overlays?interval=2", 3},
		{"fractional", "/overlays?interval=2.7", 3},
		{"before first", "/overlays?interval=-1", 1},
		{"zero is an interval", "/overlays?interval=0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("GET", tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			snap := decodeSnapshot(t, rec)
			if snap.IntervalID != tt.want {
				t.Errorf("IntervalID = %d, want %d", snap.IntervalID, tt.want)
			}
			if got := rec.Header().Get(HeaderIntervalID); got != tt.want.String() {
				t.Errorf("%s = %q, want %q", HeaderIntervalID, got, tt.want.String())
			}
		})
	}
}

func TestHandler_Overlays_BadParams(t *testing.T) {
	f := newFixture(t, "")

	for _, target := range []string{
		"/overlays?interval=Infinity",
		"/overlays?interval=-Infinity",
		"/overlays?interval=1e300",
		"/overlays?wait=forever",
		"/overlays?wait=-1s",
	} {
		t.Run(target, func(t *testing.T) {
			rec := f.do("GET", target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_Overlays_WaitsForInsert(t *testing.T) {
	f := newFixture(t, "")
	f.insert(t, domain.CollectionOverlays, 5, `{}`)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do("GET", "/overlays?interval=5&wait=1s", "")
	}()

	deadline := time.Now().Add(time.Second)
	for f.store.Subscribers(domain.CollectionOverlays) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("request never started waiting")
		}
		time.Sleep(time.Millisecond)
	}
	f.insert(t, domain.CollectionOverlays, 6, `{"a":1}`)

	rec := <-done
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if snap := decodeSnapshot(t, rec); snap.IntervalID != 6 {
		t.Errorf("IntervalID = %d, want 6", snap.IntervalID)
	}
}

func TestHandler_Overlays_Timeout(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name   string
		target string
	}{
		{"default wait", "/overlays"},
		{"no wait", "/overlays?wait=0"},
		{"seconds", "/overlays?interval=3&wait=0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("GET", tt.target, "")
			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected status 204, got %d", rec.Code)
			}
			if got := rec.Header().Get(HeaderWaitOutcome); got != "timeout" {
				t.Errorf("%s = %q, want timeout", HeaderWaitOutcome, got)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("expected empty body, got %q", rec.Body.String())
			}
		})
	}
	if n := f.store.Subscribers(domain.CollectionOverlays); n != 0 {
		t.Errorf("Subscribers() = %d after timeouts, want 0", n)
	}
}

func TestHandler_Topology(t *testing.T) {
	f := newFixture(t, "")
	f.insert(t, domain.CollectionTopology, 7, `[{"OverlayId":"a","n":1},{"OverlayId":"b","n":2}]`)

	tests := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"whole", "/topology?interval=7", 200, `[{"OverlayId":"a","n":1},{"OverlayId":"b","n":2}]`},
		{"filtered", "/topology?interval=7&overlayid=b", 200, `[{"OverlayId":"b","n":2}]`},
		{"missing interval", "/topology", 400, ""},
		{"bad interval", "/topology?interval=x", 400, ""},
		{"unknown interval", "/topology?interval=8", 404, ""},
		{"unknown overlay", "/topology?interval=7&overlayid=z", 404, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("GET", tt.target, "")
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.want == "" {
				return
			}
			snap := decodeSnapshot(t, rec)
			var got, want any
			_ = stdjson.Unmarshal(snap.Payload, &got)
			_ = stdjson.Unmarshal([]byte(tt.want), &want)
			gb, _ := stdjson.Marshal(got)
			wb, _ := stdjson.Marshal(want)
			if string(gb) != string(wb) {
				t.Errorf("payload = %s, want %s", gb, wb)
			}
		})
	}
}

func TestHandler_Ingest(t *testing.T) {
	f := newFixture(t, "")
	body := `{"overlays":[{"OverlayId":"a"}],"topology":[{"OverlayId":"a"}]}`

	rec := f.do("PUT", "/snapshots/42", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do("GET", "/overlays", "")
	if snap := decodeSnapshot(t, rec); snap.IntervalID != 42 {
		t.Errorf("IntervalID = %d, want 42", snap.IntervalID)
	}

	rec = f.do("PUT", "/snapshots/42", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected status 409, got %d", rec.Code)
	}
	if got := rec.Header().Get(HeaderErrorCode); got != domain.ErrSnapshotConflict.Code {
		t.Errorf("%s = %q, want %q", HeaderErrorCode, got, domain.ErrSnapshotConflict.Code)
	}
}

func TestHandler_Ingest_BadRequests(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"bad interval", "/snapshots/abc", `{"overlays":{},"topology":[]}`},
		{"not json", "/snapshots/1", `nope`},
		{"missing topology", "/snapshots/1", `{"overlays":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("PUT", tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_Ingest_Auth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ingest-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, string(hash))
	body := `{"overlays":{},"topology":[]}`

	tests := []struct {
		name    string
		headers []string
		status  int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"wrong token", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", []string{"Authorization", "Bearer ingest-secret"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("PUT", "/snapshots/1", body, tt.headers...)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	f := newFixture(t, "")

	if rec := f.do("GET", "/nodes", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if rec := f.do("POST", "/overlays", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestResponse_Envelope(t *testing.T) {
	resp := NewErrorResponse("req-456", "MV-SNAP-4040", "snapshot not found", nil)

	if resp.Code != "MV-SNAP-4040" {
		t.Errorf("expected code 'MV-SNAP-4040', got '%s'", resp.Code)
	}
	if resp.RequestID != "req-456" {
		t.Errorf("expected request_id 'req-456', got '%s'", resp.RequestID)
	}
	if resp.Timestamp == 0 {
		t.Error("expected timestamp to be set")
	}
	if resp.Data != nil {
		t.Error("expected data to be nil for error response")
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.ErrSnapshotNotFound.Code, http.StatusNotFound},
		{domain.ErrSnapshotConflict.Code, http.StatusConflict},
		{domain.ErrSnapshotInvalid.Code, http.StatusBadRequest},
		{domain.ErrInvalidArgument.Code, http.StatusBadRequest},
		{domain.ErrTokenMissing.Code, http.StatusUnauthorized},
		{domain.ErrRateLimited.Code, http.StatusTooManyRequests},
		{domain.ErrWaitTimeout.Code, http.StatusNoContent},
		{domain.ErrWaitClosed.Code, http.StatusServiceUnavailable},
		{domain.ErrStorageError.Code, http.StatusInternalServerError},
		{"UNKNOWN", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if status := errorCodeToHTTPStatus(tt.code); status != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, status)
			}
		})
	}
}

func TestParseWait(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		isNil   bool
		wantErr bool
	}{
		{"", 0, true, false},
		{"2s", 2 * time.Second, false, false},
		{"250ms", 250 * time.Millisecond, false, false},
		{"3", 3 * time.Second, false, false},
		{"0.5", 500 * time.Millisecond, false, false},
		{"0", 0, false, false},
		{"-1", 0, false, true},
		{"NaN", 0, false, true},
		{"soon", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWait(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWait(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.isNil {
				if got != nil {
					t.Errorf("parseWait(%q) = %v, want nil", tt.in, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseWait(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
