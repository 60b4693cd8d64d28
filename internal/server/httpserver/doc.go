// Package httpserver provides the HTTP/HTTPS server for meshview.
//
// Routes are served by the handler subpackage:
//
//   - Snapshot endpoints: /intervals, /overlays, /topology, /snapshots/{interval}
//   - Health endpoints: /health, /ready, /metrics
//
// The router wraps them in Recover, RequestID, AccessLog, CORS and
// RateLimit middleware. Server applies write deadlines that leave room for
// long-polling waits and supports TLS.
package httpserver
