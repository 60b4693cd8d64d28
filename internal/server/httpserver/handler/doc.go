// Package handler provides the HTTP request handlers for meshview.
//
//   - snapshots.go: interval listing, overlay reads with wait, topology lookup
//   - ingest.go: snapshot pair upload
//   - health.go: liveness and readiness
//
// Data endpoints return the stored documents as-is so the dashboard can
// consume them directly. Errors and operational endpoints use the Response
// envelope.
package handler
