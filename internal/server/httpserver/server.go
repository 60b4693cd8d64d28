package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yndnr/meshview-go/internal/infra/tlsroots"
)

// writeTimeoutSlack is added to the longest wait so a waiting request can
// still write its answer.
const writeTimeoutSlack = 10 * time.Second

// Options configures the HTTP server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration

	// MaxWait is the longest a request may wait for a snapshot. The write
	// timeout is derived from it.
	MaxWait time.Duration

	// TLSCertFile and TLSKeyFile enable HTTPS. The pair is reloaded when the
	// files change on disk.
	TLSCertFile string
	TLSKeyFile  string

	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	tls        *tlsroots.Watcher
	logger     *slog.Logger
}

// New creates a new HTTP server.
func New(opts Options, handler http.Handler) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			IdleTimeout:       opts.IdleTimeout,
			WriteTimeout:      WriteTimeout(opts.MaxWait),
			ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelWarn),
		},
		handler: handler,
		logger:  opts.Logger.With("component", "httpserver"),
	}

	if opts.TLSCertFile != "" || opts.TLSKeyFile != "" {
		w, err := tlsroots.NewWatcher(opts.TLSCertFile, opts.TLSKeyFile, tlsroots.WithLogger(opts.Logger))
		if err != nil {
			return nil, err
		}
		s.tls = w
		s.httpServer.TLSConfig = w.ServerConfig()
	}
	return s, nil
}

// WriteTimeout returns the server write timeout for a wait cap.
func WriteTimeout(maxWait time.Duration) time.Duration {
	if maxWait <= 0 {
		return 0
	}
	return maxWait + writeTimeoutSlack
}

// TLS reports whether the server serves HTTPS.
func (s *Server) TLS() bool {
	return s.tls != nil
}

// Serve accepts connections on l until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("http server listening", "addr", l.Addr().String(), "tls", s.TLS())

	var err error
	if s.tls != nil {
		err = s.httpServer.ServeTLS(l, "", "")
	} else {
		err = s.httpServer.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown gracefully shuts down the server. Waiting requests are answered
// by their own timeouts or by the store closing.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.tls != nil {
		defer s.tls.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
