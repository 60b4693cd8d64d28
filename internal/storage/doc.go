// Package storage persists overlay and topology snapshots.
//
// Architecture:
//
//   - Store: serializes inserts per collection and publishes each committed
//     snapshot on the collection's changefeed
//   - Backend: the persistence contract (insert, get, latest, after, list)
//   - KVBackend: a Backend over any ordered KVEngine (Badger, Pebble)
//   - SQLiteBackend: a Backend over a single SQLite table
//   - memory.Store: an in-memory Backend for tests and development
//
// KV keys carry the interval id as 8 big-endian bytes with the sign bit
// flipped, so "after" and "latest" are single seeks.
package storage
