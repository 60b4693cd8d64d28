package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Environment variables read by Merge.
const (
	EnvServer  = "MESHVIEW_SERVER"
	EnvOutput  = "MESHVIEW_OUTPUT"
	EnvContext = "MESHVIEW_CONTEXT"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".meshview", "cli.yaml")
}

// Load loads CLI configuration from file. A missing file yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]ContextConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Validate checks cross-field consistency.
func (c *CLIConfig) Validate() error {
	switch c.DefaultOutput {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("default_output must be table, json or yaml, got %q", c.DefaultOutput)
	}
	if c.CurrentContext != "" {
		if _, ok := c.Contexts[c.CurrentContext]; !ok {
			return fmt.Errorf("current_context %q is not defined", c.CurrentContext)
		}
	}
	for name, ctx := range c.Contexts {
		if ctx.Server == "" {
			return fmt.Errorf("context %q has no server", name)
		}
	}
	return nil
}

// Merge applies MESHVIEW_* environment variables and then explicitly set
// flags on top of cfg. Flags win over the environment.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	apply := func(src map[string]string, server, output, context string) {
		if v := src[server]; v != "" {
			cfg.DefaultServer = v
			cfg.CurrentContext = ""
		}
		if v := src[output]; v != "" {
			cfg.DefaultOutput = v
		}
		if v := src[context]; v != "" {
			cfg.CurrentContext = v
		}
	}
	apply(env, EnvServer, EnvOutput, EnvContext)
	apply(flags, "server", "output", "context")
	return cfg
}
