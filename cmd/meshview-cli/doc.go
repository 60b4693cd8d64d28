// Package main provides the entry point for meshview-cli, the command line
// client for browsing and publishing meshview snapshots.
package main
