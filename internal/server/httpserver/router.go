package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the API routes.
	Handler http.Handler

	// Metrics records request metrics. Nil disables them and /metrics.
	Metrics *metric.Registry

	// Logger for access and panic logs.
	Logger *slog.Logger

	// CORSAllowedOrigins is the list of allowed CORS origins. Nil disables
	// CORS headers; an empty non-nil list allows every origin.
	CORSAllowedOrigins []string

	// RateLimiter throttles clients. Nil disables rate limiting.
	RateLimiter *RateLimiterRegistry
}

// NewRouter builds the middleware chain around the API handler.
//
// Order: Recover -> RequestID -> AccessLog -> CORS -> RateLimit -> handler.
// /metrics is served without CORS and rate limiting.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(
		Recover(log),
		RequestID(),
		AccessLog(log, cfg.Metrics),
	)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(api chi.Router) {
		if cfg.CORSAllowedOrigins != nil {
			api.Use(CORS(cfg.CORSAllowedOrigins))
		}
		if cfg.RateLimiter != nil {
			api.Use(RateLimit(cfg.RateLimiter))
		}
		api.Mount("/", cfg.Handler)
	})

	return r
}
