package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshview-go/internal/cli/config"
	"github.com/yndnr/meshview-go/internal/cli/output"
	"github.com/yndnr/meshview-go/internal/core/service"
)

// ContextInfo is one row of config contexts.
type ContextInfo struct {
	Current  string `json:"current"`
	Name     string `json:"name"`
	Server   string `json:"server"`
	Token    string `json:"token"`
	CAFile   string `json:"caFile" table:"wide"`
	Insecure bool   `json:"insecure" table:"wide"`
}

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective CLI configuration (tokens masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:   "contexts",
				Usage:  "List saved connection contexts",
				Action: configContexts,
			},
			{
				Name:      "set-context",
				Usage:     "Create or update a saved connection context",
				ArgsUsage: "[--server URL] [--token TOKEN] NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "Server URL", Required: true},
					&cli.StringFlag{Name: "token", Usage: "Bearer token for ingestion"},
					&cli.StringFlag{Name: "ca-file", Usage: "Extra CA bundle"},
					&cli.BoolFlag{Name: "insecure", Usage: "Skip TLS verification"},
					&cli.BoolFlag{Name: "use", Usage: "Make it the current context"},
				},
				Action: configSetContext,
			},
			{
				Name:      "use-context",
				Usage:     "Switch the current connection context",
				ArgsUsage: "NAME",
				Action:    configUseContext,
			},
			{
				Name:  "hash-token",
				Usage: "Print the bcrypt hash of an ingest token for the server config",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "stdin", Usage: "Read the token from stdin instead of --token"},
				},
				Action: configHashToken,
			},
		},
	}
}

// loadConfig reads the config file named by --config. It does not apply
// environment or flag overrides, so it is safe to save back.
func loadConfig(c *cli.Context) (*config.CLIConfig, string, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func configShow(c *cli.Context) error {
	cfg := config.Default()
	if mgr := GetConnectionManager(c); mgr != nil {
		cfg = mgr.Config()
	}
	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		// The table view of nested maps is not useful.
		format = output.FormatYAML
	}
	return output.NewFormatter(format, false).Format(writer(c), cfg.Masked())
}

func configPath(c *cli.Context) error {
	_, path, err := loadConfig(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer(c), path)
	return nil
}

func configContexts(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]ContextInfo, 0, len(names))
	masked := cfg.Masked()
	for _, name := range names {
		ctx := masked.Contexts[name]
		row := ContextInfo{
			Name:     name,
			Server:   ctx.Server,
			Token:    ctx.Token,
			CAFile:   ctx.CAFile,
			Insecure: ctx.Insecure,
		}
		if name == cfg.CurrentContext {
			row.Current = "*"
		}
		rows = append(rows, row)
	}
	return render(c, rows)
}

func configSetContext(c *cli.Context) error {
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return fmt.Errorf("context name required")
	}
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}

	cfg.Contexts[name] = config.ContextConfig{
		Server:   c.String("server"),
		Token:    c.String("token"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
	}
	if c.Bool("use") {
		cfg.CurrentContext = name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(writer(c), "Context %q saved to %s\n", name, path)
	return nil
}

func configUseContext(c *cli.Context) error {
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return fmt.Errorf("context name required")
	}
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("unknown context %q", name)
	}
	cfg.CurrentContext = name
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(writer(c), "Switched to context %q\n", name)
	return nil
}

func configHashToken(c *cli.Context) error {
	token := c.String("token")
	if c.Bool("stdin") {
		var r io.Reader = os.Stdin
		if c.App != nil && c.App.Reader != nil {
			r = c.App.Reader
		}
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("no token given (use --token or --stdin)")
	}

	hash, err := service.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer(c), hash)
	return nil
}
