// Package config defines the meshview-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation run before anything is opened
//   - sanitize.go: copy with secrets masked, for logging
//   - storage.go: translation into storage.OpenConfig
//
// Values are loaded by internal/infra/confloader from a YAML file and
// MESHVIEW_ environment variables on top of Default().
package config
