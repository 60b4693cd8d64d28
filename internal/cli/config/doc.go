// Package config provides the meshview-cli configuration file.
//
//   - spec.go: CLIConfig and named connection contexts (~/.meshview/cli.yaml)
//   - loader.go: loading, saving and merging with environment and flags
package config
