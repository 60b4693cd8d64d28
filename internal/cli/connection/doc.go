// Package connection resolves which meshview server the CLI talks to and
// provides the HTTP client for it.
//
//   - manager.go: connection profiles resolved from the CLI config
//   - http.go: HTTP/HTTPS client and response decoding
package connection
