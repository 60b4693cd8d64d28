package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshview-go/internal/cli/connection"
	"github.com/yndnr/meshview-go/internal/cli/output"
)

// HealthStatus is the data of GET /health and GET /ready.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	Error   string `json:"error,omitempty"`
}

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the server process answers",
				Action: systemProbe("/health", "healthy"),
			},
			{
				Name:   "ready",
				Usage:  "Check that the server can reach its store",
				Action: systemProbe("/ready", "ready"),
			},
		},
	}
}

func systemProbe(path, want string) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, err := EnsureConnected(c)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
		defer cancel()

		resp, err := client.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("%s check failed: %w", want, err)
		}

		var status HealthStatus
		err = connection.ParseEnvelope(resp, &status)
		var apiErr *connection.APIError
		if errors.As(err, &apiErr) {
			status = HealthStatus{Status: "unavailable", Error: apiErr.Error()}
		} else if err != nil {
			return err
		}

		format, err := outputFormat(c)
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			if err := render(c, status); err != nil {
				return err
			}
		} else if status.Status == want {
			fmt.Fprintf(writer(c), "✓ Server is %s\n", want)
			fmt.Fprintf(writer(c), "  Target:  %s\n", client.BaseURL())
			if status.Version != "" {
				fmt.Fprintf(writer(c), "  Version: %s\n", status.Version)
			}
		} else {
			fmt.Fprintf(writer(c), "✗ Server is %s: %s\n", status.Status, status.Error)
		}

		if status.Status != want {
			return cli.Exit("", 1)
		}
		return nil
	}
}
