package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/core/service"
)

// handleIntervals handles GET /intervals.
func (h *Handler) handleIntervals(w http.ResponseWriter, r *http.Request) {
	metas, err := h.queries.Intervals(r.Context(), domain.CollectionOverlays)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if metas == nil {
		metas = []domain.SnapshotMeta{}
	}
	h.writeDocument(w, http.StatusOK, metas)
}

// handleOverlays handles GET /overlays?interval=<float>&wait=<duration>.
//
// Without interval the latest snapshot is returned; with one, the first
// snapshot strictly after it. A miss waits for the next insert; when the
// wait runs out the answer is 204 with X-Wait-Outcome: timeout.
func (h *Handler) handleOverlays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after, err := domain.ParseIntervalParam(q.Get("interval"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err)
		return
	}
	wait, err := parseWait(q.Get("wait"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, err := h.awaiter.Await(r.Context(), service.AwaitRequest{
		Collection: domain.CollectionOverlays,
		After:      after,
		Wait:       wait,
	})
	switch {
	case err == nil:
		w.Header().Set(HeaderIntervalID, snap.IntervalID.String())
		w.Header().Set(HeaderWaitOutcome, "resolved")
		h.writeDocument(w, http.StatusOK, snap)
	case errors.Is(err, domain.ErrWaitTimeout):
		w.Header().Set(HeaderWaitOutcome, "timeout")
		w.Header().Set(HeaderErrorCode, domain.ErrWaitTimeout.Code)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrWaitClosed):
		WriteError(w, r, http.StatusServiceUnavailable, err)
	default:
		h.handleServiceError(w, r, err)
	}
}

// handleTopology handles GET /topology?interval=<id>&overlayid=<id>.
func (h *Handler) handleTopology(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := strings.TrimSpace(q.Get("interval"))
	if raw == "" {
		WriteError(w, r, http.StatusBadRequest, domain.ErrMissingArgument.WithDetails("interval is required"))
		return
	}
	id, err := domain.ParseIntervalID(raw)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err)
		return
	}

	snap, err := h.topology.Get(r.Context(), id, strings.TrimSpace(q.Get("overlayid")))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.Header().Set(HeaderIntervalID, snap.IntervalID.String())
	h.writeDocument(w, http.StatusOK, snap)
}
