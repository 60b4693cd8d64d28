// Package service holds the snapshot read and write paths.
//
//   - QueryService: latest / strictly-after lookups, coalesced with singleflight
//   - Awaiter: turns a miss into a bounded wait on the insert changefeed
//   - IngestService: writes the Topology/Overlays pair of one interval
//   - IngestAuth: bcrypt bearer-token check for the ingest endpoint
//   - TopologyService: exact-interval topology lookup filtered by overlay
//
// Services depend on small interfaces that storage.Store satisfies, so tests
// can substitute fakes.
package service
