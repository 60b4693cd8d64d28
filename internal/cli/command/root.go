package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshview-go/internal/cli/config"
	"github.com/yndnr/meshview-go/internal/cli/connection"
	"github.com/yndnr/meshview-go/internal/cli/output"
	"github.com/yndnr/meshview-go/internal/infra/buildinfo"
)

const metaConnMgr = "connMgr"

// DefaultRequestTimeout bounds requests that do not wait on the server.
const DefaultRequestTimeout = 30 * time.Second

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "meshview-cli",
		Usage:   "Query and feed a meshview overlay snapshot server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			IntervalsCommand(),
			OverlaysCommand(),
			TopologyCommand(),
			SnapshotsCommand(),
			SystemCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: setup,
	}
}

// setup loads the CLI config, applies environment and flag overrides and
// installs the connection manager.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	flags := map[string]string{}
	for _, name := range []string{"server", "output", "context"} {
		if c.IsSet(name) {
			flags[name] = c.String(name)
		}
	}
	env := map[string]string{
		config.EnvServer:  os.Getenv(config.EnvServer),
		config.EnvOutput:  os.Getenv(config.EnvOutput),
		config.EnvContext: os.Getenv(config.EnvContext),
	}
	cfg = config.Merge(cfg, env, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[metaConnMgr] = connection.NewManager(cfg)
	return nil
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "meshview server URL (default http://localhost:8080, env MESHVIEW_SERVER)",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Bearer token for snapshot ingestion",
			EnvVars: []string{"MESHVIEW_TOKEN"},
		},
		&cli.StringFlag{
			Name:  "context",
			Usage: "Saved connection context to use (env MESHVIEW_CONTEXT)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle of extra CAs trusted for HTTPS servers",
		},
		&cli.BoolFlag{
			Name:    "insecure",
			Aliases: []string{"k"},
			Usage:   "Skip TLS certificate verification",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout, not counting server-side waits",
			Value: DefaultRequestTimeout,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server   string
	Token    string
	Context  string
	Output   string
	Wide     bool
	CAFile   string
	Insecure bool
	Timeout  time.Duration
	Verbose  bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &GlobalFlags{
		Server:   c.String("server"),
		Token:    c.String("token"),
		Context:  c.String("context"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
		Timeout:  timeout,
		Verbose:  c.Bool("verbose"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected resolves the target server and returns a client for it.
// An explicit --server replaces the saved context entirely so a context
// token is never sent to another host.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		mgr = connection.NewManager(nil)
	}
	flags := ParseGlobalFlags(c)

	conn, err := mgr.Resolve(flags.Context)
	if err != nil {
		return nil, err
	}
	if flags.Server != "" {
		conn = &connection.Connection{Server: flags.Server}
	}
	if flags.Token != "" {
		conn.Token = flags.Token
	}
	if flags.CAFile != "" {
		conn.CAFile = flags.CAFile
	}
	if flags.Insecure {
		conn.Insecure = true
	}

	if err := mgr.Connect(conn); err != nil {
		return nil, err
	}
	client, err := mgr.Client()
	if err != nil {
		return nil, err
	}
	if flags.Verbose {
		fmt.Fprintf(errWriter(c), "using %s\n", client.BaseURL())
	}
	return client, nil
}

// outputFormat returns the requested format, falling back to the config
// default.
func outputFormat(c *cli.Context) (output.Format, error) {
	format := output.Format(c.String("output"))
	if format == "" {
		if mgr := GetConnectionManager(c); mgr != nil {
			format = output.Format(mgr.Config().DefaultOutput)
		}
	}
	if format == "" {
		format = output.FormatTable
	}
	if !format.Valid() {
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
	return format, nil
}

// render writes data with the requested formatter.
func render(c *cli.Context, data any) error {
	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
