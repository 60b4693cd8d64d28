package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshview-go/internal/core/service"
	"github.com/yndnr/meshview-go/internal/infra/buildinfo"
	"github.com/yndnr/meshview-go/internal/infra/confloader"
	"github.com/yndnr/meshview-go/internal/infra/shutdown"
	"github.com/yndnr/meshview-go/internal/notify/mqttrelay"
	"github.com/yndnr/meshview-go/internal/server/config"
	"github.com/yndnr/meshview-go/internal/server/httpserver"
	"github.com/yndnr/meshview-go/internal/server/httpserver/handler"
	"github.com/yndnr/meshview-go/internal/storage"
	"github.com/yndnr/meshview-go/internal/telemetry/logger"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("meshview-server %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	log.Info("starting meshview-server",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", *configFile,
		"engine", cfg.Storage.Engine)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	var metrics *metric.Registry
	if cfg.Metrics.Enabled {
		metrics = metric.NewRegistry()
	}

	store, err := openStore(cfg, metrics, slogLogger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if metrics != nil {
		metrics.Registerer().MustRegister(metric.NewCollector(store))
	}

	router := buildRouter(cfg, store, metrics, slogLogger)

	srv, err := httpserver.New(httpserver.Options{
		Addr:              cfg.Server.HTTP.Addr,
		ReadHeaderTimeout: cfg.Server.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.HTTP.IdleTimeout,
		MaxWait:           cfg.Wait.MaxTimeout,
		TLSCertFile:       cfg.Server.HTTP.TLSCertFile,
		TLSKeyFile:        cfg.Server.HTTP.TLSKeyFile,
		Logger:            slogLogger,
	}, router)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init http server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, slogLogger)

	// Hooks run in reverse: waiters are released, then HTTP, the relay and
	// finally the store.
	shutdownHandler.OnShutdown("storage", func(ctx context.Context) error {
		log.Info("closing snapshot store")
		return store.Close()
	})

	if cfg.Notify.MQTT.Enabled {
		relay, err := startRelay(cfg, store, metrics, slogLogger)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("init mqtt relay: %w", err)
		}
		shutdownHandler.OnShutdown("mqtt-relay", func(ctx context.Context) error {
			relay.Stop()
			return nil
		})
	}

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, loader, slogLogger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}

	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return srv.Shutdown(ctx)
	})

	shutdownHandler.OnShutdown("release-waiters", func(ctx context.Context) error {
		store.CloseFeeds()
		return nil
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the optional file and MESHVIEW_* variables.
func loadConfig(configFile string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

func openStore(cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger) (*storage.Store, error) {
	var reg prometheus.Registerer
	if metrics != nil {
		reg = metrics.Registerer()
	}
	openCfg, err := cfg.Storage.OpenConfig(reg)
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(openCfg, log)
	if err != nil {
		return nil, err
	}
	return storage.NewStore(backend, log), nil
}

// buildRouter wires the services, handler and middleware over store.
func buildRouter(cfg *config.ServerConfig, store *storage.Store, metrics *metric.Registry, log *slog.Logger) http.Handler {
	queries := service.NewQueryService(store, metrics, log)
	awaiter := service.NewAwaiter(queries, store, service.AwaiterConfig{
		Timeout:    cfg.Wait.Timeout,
		MaxTimeout: cfg.Wait.MaxTimeout,
	}, metrics, log)

	var auth *service.IngestAuth
	if cfg.Security.IngestTokenHash != "" {
		auth = service.NewIngestAuth(cfg.Security.IngestTokenHash, service.DefaultAuthCacheTTL)
	}

	h := handler.New(handler.Config{
		Queries:  queries,
		Awaiter:  awaiter,
		Topology: service.NewTopologyService(store),
		Ingest:   service.NewIngestService(store, metrics, log),
		Auth:     auth,
		Store:    store,
		Logger:   log,
	})

	var limiter *httpserver.RateLimiterRegistry
	if rl := cfg.Server.HTTP.RateLimit; rl.Enabled {
		limiter = httpserver.NewRateLimiterRegistry(rl.RPS, rl.Burst)
	}

	return httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:            h,
		Metrics:            metrics,
		Logger:             log,
		CORSAllowedOrigins: corsOrigins(cfg.Server.HTTP.CORSAllowedOrigins),
		RateLimiter:        limiter,
	})
}

// corsOrigins maps the config list onto RouterConfig: nil disables CORS,
// an empty non-nil list allows any origin.
func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return nil
	}
	for _, o := range origins {
		if o == "*" {
			return []string{}
		}
	}
	return origins
}

func startRelay(cfg *config.ServerConfig, store *storage.Store, metrics *metric.Registry, log *slog.Logger) (*mqttrelay.Relay, error) {
	mc := cfg.Notify.MQTT
	pub, err := mqttrelay.Dial(mqttrelay.ClientConfig{
		Broker:         mc.Broker,
		ClientID:       mc.ClientID,
		Username:       mc.Username,
		Password:       mc.Password,
		ConnectTimeout: mc.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	relay := mqttrelay.New(mqttrelay.Config{
		TopicPrefix: mc.TopicPrefix,
		QoS:         byte(mc.QoS),
	}, store, pub, metrics, log)
	if err := relay.Start(context.Background()); err != nil {
		pub.Close()
		return nil, err
	}
	return relay, nil
}

// watchConfig reloads the file on change and applies the log level. Other
// settings need a restart.
func watchConfig(path string, loader *confloader.Loader, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config is invalid", "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Error("apply log level", "error", err)
			return
		}
		log.Info("configuration reloaded", "log_level", next.Log.Level)
	})
	w.StartAsync()
	return w, nil
}
