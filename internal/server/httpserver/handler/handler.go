package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/core/service"
	"github.com/yndnr/meshview-go/internal/telemetry/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response headers.
const (
	HeaderWaitOutcome = "X-Wait-Outcome"
	HeaderErrorCode   = "X-Error-Code"
	HeaderIntervalID  = "X-Interval-Id"
)

// StatusClientClosed is logged when the caller went away before the answer.
const StatusClientClosed = 499

// DefaultMaxBodyBytes bounds an ingest request body.
const DefaultMaxBodyBytes = 32 << 20

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires the handler to its services.
type Config struct {
	Queries  *service.QueryService
	Awaiter  *service.Awaiter
	Topology *service.TopologyService
	Ingest   *service.IngestService
	Auth     *service.IngestAuth
	Store    Pinger
	Logger   *slog.Logger

	// MaxBodyBytes bounds ingest bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Handler serves the meshview HTTP API.
type Handler struct {
	queries  *service.QueryService
	awaiter  *service.Awaiter
	topology *service.TopologyService
	ingest   *service.IngestService
	auth     *service.IngestAuth
	store    Pinger
	logger   *slog.Logger
	maxBody  int64
	mux      chi.Router
}

// New creates a Handler and registers its routes.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	h := &Handler{
		queries:  cfg.Queries,
		awaiter:  cfg.Awaiter,
		topology: cfg.Topology,
		ingest:   cfg.Ingest,
		auth:     cfg.Auth,
		store:    cfg.Store,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
		mux:      chi.NewRouter(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.Get("/health", h.handleHealth)
	h.mux.Get("/ready", h.handleReady)

	h.mux.Get("/intervals", h.handleIntervals)
	h.mux.Get("/overlays", h.handleOverlays)
	h.mux.Get("/topology", h.handleTopology)
	h.mux.Put("/snapshots/{interval}", h.handleIngest)

	h.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, domain.ErrBadRequest.WithDetails("no route for "+r.URL.Path))
	})
	h.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, domain.ErrBadRequest.WithDetails(r.Method+" not allowed on "+r.URL.Path))
	})
}

// ============================================================================
// Response writers
// ============================================================================

// writeDocument writes v as plain JSON, without the envelope.
func (h *Handler) writeDocument(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeJSON writes data inside the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.writeDocument(w, status, NewResponse(logger.RequestIDFromContext(r.Context()), data))
}

// WriteError writes err inside the standard envelope. Domain errors keep
// their code and message; anything else is reported as an internal error.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := domain.GetErrorCode(err)
	message := err.Error()
	if code == "" {
		code = domain.ErrInternalServer.Code
		message = domain.ErrInternalServer.Message
	}

	resp := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, nil)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderErrorCode, code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The caller is gone; nobody reads a body.
		w.WriteHeader(StatusClientClosed)
		return
	}
	if !domain.IsDomainError(err, "") {
		logger.L(r.Context()).Error("internal error", "error", err)
		WriteError(w, r, http.StatusInternalServerError, err)
		return
	}
	WriteError(w, r, errorCodeToHTTPStatus(domain.GetErrorCode(err)), err)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-2040"):
		return http.StatusNoContent
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Parameters
// ============================================================================

// parseWait reads the wait parameter: a Go duration ("2s", "500ms") or a
// number of seconds. Empty means the server default.
func parseWait(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, ferr := parseSeconds(s)
		if ferr != nil {
			return nil, domain.ErrInvalidArgument.WithDetails("wait must be a duration or a number of seconds")
		}
		d = secs
	}
	if d < 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("wait must not be negative")
	}
	return &d, nil
}
