// Package confloader loads layered configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults (LoadMap, usually from a Default() struct flattened by the caller)
//  2. YAML file
//  3. Environment variables (MESHVIEW_ prefix, "__" separates levels)
//
// Watcher wraps fsnotify so the server can react to edits of its config
// file without a restart.
package confloader
