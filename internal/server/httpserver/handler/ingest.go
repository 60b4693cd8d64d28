package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/core/service"
)

// handleIngest handles PUT /snapshots/{interval}.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Verify(bearerToken(r)); err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="meshview"`)
		WriteError(w, r, http.StatusUnauthorized, err)
		return
	}

	id, err := domain.ParseIntervalID(chi.URLParam(r, "interval"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, domain.ErrBadRequest.WithDetails("body exceeds limit"))
			return
		}
		WriteError(w, r, http.StatusBadRequest, domain.ErrBadRequest.WithDetails("reading body").WithCause(err))
		return
	}

	var body IngestRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		WriteError(w, r, http.StatusBadRequest, domain.ErrBadRequest.WithDetails("body must be a JSON object").WithCause(err))
		return
	}

	res, err := h.ingest.Ingest(r.Context(), &service.IngestRequest{
		IntervalID: id,
		Overlays:   body.Overlays,
		Topology:   body.Topology,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, res)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
