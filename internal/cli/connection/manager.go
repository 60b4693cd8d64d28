package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yndnr/meshview-go/internal/cli/config"
)

// ErrNotConnected is returned when no connection has been established.
var ErrNotConnected = errors.New("not connected to a server")

// Manager resolves connection profiles and tracks the active one.
type Manager struct {
	cfg     *config.CLIConfig
	current *Connection
}

// Connection represents a connection to a meshview server.
type Connection struct {
	Name     string
	Server   string
	Token    string
	CAFile   string
	Insecure bool
}

// TLS reports whether the connection uses HTTPS.
func (c *Connection) TLS() bool {
	return strings.HasPrefix(c.Server, "https://")
}

// NewManager creates a connection manager over cfg. A nil cfg uses the
// defaults.
func NewManager(cfg *config.CLIConfig) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{cfg: cfg}
}

// Config returns the configuration the manager resolves against.
func (m *Manager) Config() *config.CLIConfig {
	return m.cfg
}

// Resolve builds a connection from the named context. An empty name uses
// the current context, falling back to the default server.
func (m *Manager) Resolve(name string) (*Connection, error) {
	if name == "" {
		cur, ok := m.cfg.Current()
		if ok {
			name = m.cfg.CurrentContext
		}
		return fromContext(name, cur), nil
	}
	ctx, ok := m.cfg.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("unknown context %q", name)
	}
	return fromContext(name, ctx), nil
}

func fromContext(name string, ctx config.ContextConfig) *Connection {
	return &Connection{
		Name:     name,
		Server:   ctx.Server,
		Token:    ctx.Token,
		CAFile:   ctx.CAFile,
		Insecure: ctx.Insecure,
	}
}

// Connect validates conn, normalizes its server URL and makes it current.
func (m *Manager) Connect(conn *Connection) error {
	if conn == nil {
		return errors.New("connection is nil")
	}
	server, err := NormalizeServer(conn.Server)
	if err != nil {
		return err
	}
	conn.Server = server
	m.current = conn
	return nil
}

// Disconnect clears the current connection.
func (m *Manager) Disconnect() {
	m.current = nil
}

// Current returns the current connection.
func (m *Manager) Current() *Connection {
	return m.current
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}

// Client returns an HTTP client for the current connection.
func (m *Manager) Client() (*HTTPClient, error) {
	if m.current == nil {
		return nil, ErrNotConnected
	}
	return NewHTTPClient(m.current)
}

// NormalizeServer adds a missing http:// scheme and strips trailing
// slashes.
func NormalizeServer(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("server address is empty")
	}
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", server, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server address %q: missing host", server)
	}
	return strings.TrimRight(server, "/"), nil
}
