package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/infra/buildinfo"
	"github.com/yndnr/meshview-go/internal/telemetry/logger"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: buildinfo.Get().Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. It fails while the store does not answer.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			env := NewErrorResponse(logger.RequestIDFromContext(r.Context()),
				domain.ErrServiceUnavailable.Code, domain.ErrServiceUnavailable.Message, resp.Error)
			env.Data = resp
			w.Header().Set(HeaderErrorCode, env.Code)
			h.writeDocument(w, http.StatusServiceUnavailable, env)
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
