// Package command defines the meshview-cli commands on urfave/cli/v2.
//
//   - root.go: application, global flags, connection resolution
//   - snapshots.go: intervals, overlays, topology and snapshots groups
//   - system.go: health and readiness probes
//   - config.go: local CLI configuration and token hashing
//   - version.go: build information
//
// Commands parse flags, call the server through connection.HTTPClient and
// render the result with the output package.
package command
