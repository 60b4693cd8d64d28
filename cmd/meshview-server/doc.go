// Package main provides the entry point for meshview-server.
//
// meshview-server stores per-interval overlay and topology snapshots of an
// overlay network and serves them over HTTP. Clients that ask for a
// snapshot which does not exist yet are held until it is inserted or a
// bounded wait runs out.
package main
