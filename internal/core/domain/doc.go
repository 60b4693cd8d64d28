// Package domain defines the core domain models for meshview.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Snapshot: one immutable overlay or topology document per collection period
//   - SnapshotMeta: the cheap listing view of a snapshot (no payload)
//   - PendingQuery: the state machine of a request waiting for a future snapshot
//   - Errors: domain error codes shared by storage, services and transports
package domain
