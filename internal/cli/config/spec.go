package config

// CLIConfig is the configuration for meshview-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server" json:"default_server"`
	DefaultOutput string `yaml:"default_output" json:"default_output"` // table, json, yaml

	// Saved connection contexts, keyed by name.
	Contexts map[string]ContextConfig `yaml:"contexts" json:"contexts"`

	CurrentContext string `yaml:"current_context" json:"current_context"`
}

// ContextConfig stores the details of one saved server.
type ContextConfig struct {
	Server   string `yaml:"server" json:"server"`
	Token    string `yaml:"token,omitempty" json:"token,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://localhost:8080",
		DefaultOutput: "table",
		Contexts:      make(map[string]ContextConfig),
	}
}

// Current returns the active context. Without one, a context pointing at
// DefaultServer is returned and ok is false.
func (c *CLIConfig) Current() (ContextConfig, bool) {
	if c.CurrentContext != "" {
		if ctx, ok := c.Contexts[c.CurrentContext]; ok {
			return ctx, true
		}
	}
	return ContextConfig{Server: c.DefaultServer}, false
}

// Masked returns a copy with tokens replaced, suitable for printing.
func (c *CLIConfig) Masked() *CLIConfig {
	out := *c
	out.Contexts = make(map[string]ContextConfig, len(c.Contexts))
	for name, ctx := range c.Contexts {
		if ctx.Token != "" {
			ctx.Token = "***"
		}
		out.Contexts[name] = ctx
	}
	return &out
}
