package command

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/meshview-go/internal/core/service"
	"github.com/yndnr/meshview-go/internal/server/httpserver/handler"
	"github.com/yndnr/meshview-go/internal/storage"
	"github.com/yndnr/meshview-go/internal/storage/memory"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

func newLiveServer(t *testing.T) string {
	t.Helper()
	store := storage.NewStore(memory.New(), nil)
	t.Cleanup(func() { _ = store.Close() })

	m := metric.NewRegistry()
	queries := service.NewQueryService(store, m, nil)
	h := handler.New(handler.Config{
		Queries: queries,
		Awaiter: service.NewAwaiter(queries, store, service.AwaiterConfig{
			Timeout: 50 * time.Millisecond, MaxTimeout: time.Second,
		}, m, nil),
		Topology: service.NewTopologyService(store),
		Ingest:   service.NewIngestService(store, m, nil),
		Store:    store,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCLI_AgainstServer(t *testing.T) {
	url := newLiveServer(t)

	overlays := writeFile(t, "overlays.json", `[{"OverlayId":"ov-1","Nodes":3},{"OverlayId":"ov-2","Nodes":5}]`)
	topology := writeFile(t, "topology.json", `[{"OverlayId":"ov-1","Links":["a-b"]},{"OverlayId":"ov-2","Links":[]}]`)

	res := run(t, "", "--server", url, "snapshots", "push", "-i", "1", "--overlays", overlays, "--topology", topology)
	if res.err != nil {
		t.Fatalf("push: %v", res.err)
	}
	if !strings.Contains(res.stdout, "interval 1 stored") {
		t.Errorf("push stdout = %q", res.stdout)
	}

	res = run(t, "", "--server", url, "snapshots", "push", "-i", "1", "--overlays", overlays, "--topology", topology)
	if res.err == nil || !strings.Contains(res.err.Error(), "MV-SNAP-4090") {
		t.Errorf("second push err = %v, want conflict", res.err)
	}

	res = run(t, "", "--server", url, "-o", "json", "overlays", "get")
	if res.err != nil {
		t.Fatalf("overlays get: %v", res.err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(res.stdout), &snap); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if snap.IntervalID != 1 || snap.Collection != "Overlays" || snap.Summary().Items != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	res = run(t, "", "--server", url, "-o", "json", "intervals", "list")
	if res.err != nil {
		t.Fatalf("intervals list: %v", res.err)
	}
	var metas []IntervalInfo
	if err := json.Unmarshal([]byte(res.stdout), &metas); err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].IntervalID != 1 || metas[0].Items != 2 || metas[0].Checksum == "" {
		t.Errorf("intervals = %+v", metas)
	}

	res = run(t, "", "--server", url, "topology", "get", "-i", "1", "--overlay", "ov-2", "--payload")
	if res.err != nil {
		t.Fatalf("topology get: %v", res.err)
	}
	if strings.Contains(res.stdout, "ov-1") || !strings.Contains(res.stdout, `"OverlayId": "ov-2"`) {
		t.Errorf("filtered topology = %s", res.stdout)
	}

	res = run(t, "", "--server", url, "overlays", "get", "--interval", "1", "--wait", "20ms")
	if res.exitCode() != ExitNoSnapshot {
		t.Errorf("exit code = %d (err %v), want %d", res.exitCode(), res.err, ExitNoSnapshot)
	}

	res = run(t, "", "--server", url, "system", "ready")
	if res.err != nil || !strings.Contains(res.stdout, "Server is ready") {
		t.Errorf("ready: %v %q", res.err, res.stdout)
	}
}
