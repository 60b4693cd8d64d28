// Package tlsroots builds TLS configurations for meshview.
//
//   - roots.go: client-side trust (system pool plus an optional CA bundle)
//     used by meshview-cli for https servers
//   - watcher.go: server certificate that is reloaded when the key pair on
//     disk changes, so certificates can rotate without a restart
package tlsroots
