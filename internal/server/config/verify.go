package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/meshview-go/internal/storage"
	"github.com/yndnr/meshview-go/internal/telemetry/logger"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyWait(&cfg.Wait),
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyNotify(&cfg.Notify),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	h := &cfg.HTTP
	if _, _, err := net.SplitHostPort(h.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", h.Addr, err)
	}

	if (h.TLSCertFile == "") != (h.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{h.TLSCertFile, h.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http TLS file: %w", err)
		}
	}

	if h.ReadHeaderTimeout <= 0 {
		return errors.New("server.http.read_header_timeout must be positive")
	}

	if h.RateLimit.Enabled && (h.RateLimit.RPS <= 0 || h.RateLimit.Burst < 1) {
		return errors.New("server.http.rate_limit needs rps > 0 and burst >= 1")
	}
	return nil
}

func verifyWait(cfg *WaitSection) error {
	if cfg.Timeout <= 0 {
		return errors.New("wait.timeout must be positive")
	}
	if cfg.MaxTimeout < cfg.Timeout {
		return fmt.Errorf("wait.max_timeout (%s) must not be below wait.timeout (%s)", cfg.MaxTimeout, cfg.Timeout)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if !slices.Contains(storage.Engines, cfg.Engine) {
		return fmt.Errorf("storage.engine %q: want one of %v", cfg.Engine, storage.Engines)
	}
	if cfg.Engine == storage.EngineMemory {
		return nil
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}

	if cfg.Badger.GCThreshold < 0 || cfg.Badger.GCThreshold >= 1 {
		return errors.New("storage.badger.gc_threshold must be in [0, 1)")
	}
	if _, err := cfg.OpenConfig(nil); err != nil {
		return err
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.IngestTokenHash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(cfg.IngestTokenHash)); err != nil {
		return fmt.Errorf("security.ingest_token_hash is not a bcrypt hash: %w", err)
	}
	return nil
}

func verifyNotify(cfg *NotifySection) error {
	m := &cfg.MQTT
	if !m.Enabled {
		return nil
	}
	if m.Broker == "" {
		return errors.New("notify.mqtt.broker is required when the relay is enabled")
	}
	if _, err := url.Parse(m.Broker); err != nil {
		return fmt.Errorf("notify.mqtt.broker: %w", err)
	}
	if m.QoS < 0 || m.QoS > 2 {
		return fmt.Errorf("notify.mqtt.qos %d: want 0, 1 or 2", m.QoS)
	}
	if m.TopicPrefix == "" {
		return errors.New("notify.mqtt.topic_prefix is required")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Format {
	case "", "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q: want json or text", cfg.Format)
	}
}
