package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshview-go/internal/cli/connection"
	"github.com/yndnr/meshview-go/internal/cli/output"
)

// ExitNoSnapshot is the exit code when a wait ran out without a new
// snapshot.
const ExitNoSnapshot = 2

// IntervalInfo is one entry of GET /intervals.
type IntervalInfo struct {
	IntervalID int64  `json:"intervalId"`
	CreatedAt  int64  `json:"createdAt" table:"millis"`
	SizeBytes  int64  `json:"sizeBytes" table:"bytes"`
	Items      int    `json:"items" table:"count"`
	Checksum   string `json:"checksum" table:"wide"`
}

// Snapshot is a stored overlay or topology document.
type Snapshot struct {
	IntervalID int64           `json:"intervalId"`
	Collection string          `json:"collection"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  int64           `json:"createdAt"`
}

// SnapshotSummary is the table view of a Snapshot.
type SnapshotSummary struct {
	IntervalID int64  `json:"intervalId"`
	Collection string `json:"collection"`
	CreatedAt  int64  `json:"createdAt" table:"millis"`
	SizeBytes  int64  `json:"sizeBytes" table:"bytes"`
	Items      int    `json:"items" table:"count"`
}

// Summary describes s without its payload.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		IntervalID: s.IntervalID,
		Collection: s.Collection,
		CreatedAt:  s.CreatedAt,
		SizeBytes:  int64(len(s.Payload)),
		Items:      countItems(s.Payload),
	}
}

func countItems(payload []byte) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(payload, &arr); err == nil {
		return len(arr)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		return len(obj)
	}
	return 0
}

// IngestResult is the data of a successful PUT /snapshots/{interval}.
type IngestResult struct {
	IntervalID int64    `json:"intervalId"`
	Inserted   []string `json:"inserted"`
}

// IntervalsCommand returns the intervals subcommand group.
func IntervalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "intervals",
		Usage: "Stored overlay intervals",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored intervals, oldest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "last",
						Usage: "Show only the newest N intervals",
					},
				},
				Action: intervalsList,
			},
		},
	}
}

func intervalsList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/intervals")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var items []IntervalInfo
	if err := connection.ParseResponse(resp, &items); err != nil {
		return err
	}
	if n := c.Int("last"); n > 0 && n < len(items) {
		items = items[len(items)-n:]
	}
	if items == nil {
		items = []IntervalInfo{}
	}
	return render(c, items)
}

// OverlaysCommand returns the overlays subcommand group.
func OverlaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "overlays",
		Usage: "Overlay snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Fetch the latest overlay snapshot, or the first one after --interval",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Return the first snapshot strictly after this interval",
					},
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long the server may wait for a new snapshot (server default when unset)",
					},
					&cli.BoolFlag{
						Name:  "payload",
						Usage: "Print only the payload document",
					},
				},
				Action: overlaysGet,
			},
		},
	}
}

func overlaysGet(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	flags := ParseGlobalFlags(c)

	q := url.Values{}
	if v := strings.TrimSpace(c.String("interval")); v != "" {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid --interval %q: must be a number", v)
		}
		q.Set("interval", v)
	}

	timeout := flags.Timeout
	if c.IsSet("wait") {
		wait := c.Duration("wait")
		if wait < 0 {
			return fmt.Errorf("invalid --wait %s: must not be negative", wait)
		}
		q.Set("wait", wait.String())
		timeout += wait
	}

	path := "/overlays"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	var spin *output.Spinner
	if format == output.FormatTable && c.IsSet("wait") && c.Duration("wait") > 0 {
		spin = output.NewSpinner(errWriter(c), "waiting for the next overlay snapshot")
		spin.Start()
	}

	snap, err := fetchSnapshot(ctx, client, path)
	if spin != nil {
		spin.Stop()
	}
	if errors.Is(err, connection.ErrNoContent) {
		return cli.Exit("no new overlay snapshot before the wait ran out", ExitNoSnapshot)
	}
	if err != nil {
		return err
	}
	return renderSnapshot(c, format, snap)
}

// TopologyCommand returns the topology subcommand group.
func TopologyCommand() *cli.Command {
	return &cli.Command{
		Name:  "topology",
		Usage: "Topology snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Fetch the topology of an interval, optionally for one overlay",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "interval",
						Aliases:  []string{"i"},
						Usage:    "Interval id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "overlay",
						Usage: "Keep only the entry of this overlay id",
					},
					&cli.BoolFlag{
						Name:  "payload",
						Usage: "Print only the payload document",
					},
				},
				Action: topologyGet,
			},
		},
	}
}

func topologyGet(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("interval", strconv.FormatInt(c.Int64("interval"), 10))
	if overlay := strings.TrimSpace(c.String("overlay")); overlay != "" {
		q.Set("overlayid", overlay)
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	snap, err := fetchSnapshot(ctx, client, "/topology?"+q.Encode())
	if err != nil {
		return err
	}
	return renderSnapshot(c, format, snap)
}

func fetchSnapshot(ctx context.Context, client *connection.HTTPClient, path string) (*Snapshot, error) {
	resp, err := client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var snap Snapshot
	if err := connection.ParseResponse(resp, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// renderSnapshot prints the summary as a table, or the full document for
// json and yaml. --payload prints only the payload.
func renderSnapshot(c *cli.Context, format output.Format, snap *Snapshot) error {
	f := output.NewFormatter(format, c.Bool("wide"))
	w := writer(c)
	switch {
	case c.Bool("payload"):
		if format == output.FormatTable {
			f = &output.JSONFormatter{}
		}
		return f.Format(w, snap.Payload)
	case format == output.FormatTable:
		return f.Format(w, snap.Summary())
	default:
		return f.Format(w, snap)
	}
}

// SnapshotsCommand returns the snapshots subcommand group.
func SnapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "Snapshot ingestion",
		Subcommands: []*cli.Command{
			{
				Name:  "push",
				Usage: "Store the overlay and topology documents of one interval",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "interval",
						Aliases:  []string{"i"},
						Usage:    "Interval id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "overlays",
						Usage:    "File holding the overlay document (- for stdin)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "topology",
						Usage:    "File holding the topology document (- for stdin)",
						Required: true,
					},
				},
				Action: snapshotsPush,
			},
		},
	}
}

func snapshotsPush(c *cli.Context) error {
	overlaysFile, topologyFile := c.String("overlays"), c.String("topology")
	if overlaysFile == "-" && topologyFile == "-" {
		return fmt.Errorf("only one of --overlays and --topology can read stdin")
	}
	overlays, err := readDocument(c, overlaysFile)
	if err != nil {
		return err
	}
	topology, err := readDocument(c, topologyFile)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	id := c.Int64("interval")
	body := struct {
		Overlays json.RawMessage `json:"overlays"`
		Topology json.RawMessage `json:"topology"`
	}{overlays, topology}

	resp, err := client.Put(ctx, "/snapshots/"+strconv.FormatInt(id, 10), body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var res IngestResult
	if err := connection.ParseEnvelope(resp, &res); err != nil {
		return err
	}

	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return render(c, res)
	}
	fmt.Fprintf(writer(c), "✓ interval %d stored (%s)\n", res.IntervalID, strings.Join(res.Inserted, ", "))
	return nil
}

// readDocument reads a JSON document from a file or stdin and checks that
// it parses.
func readDocument(c *cli.Context, name string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		var r io.Reader = os.Stdin
		if c.App != nil && c.App.Reader != nil {
			r = c.App.Reader
		}
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: not a valid JSON document", name)
	}
	return data, nil
}
