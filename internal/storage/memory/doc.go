// Package memory provides an in-memory snapshot backend.
//
// Each collection is an ordered skip list keyed by interval id, so listing
// is ordered without sorting and reads never block each other.
//
// Thread Safety:
//
// Reads are lock-free. Inserts take the collection write lock so the
// duplicate check and the store are atomic.
//
// The backend holds no durability guarantees; it backs tests and
// short-lived development servers.
package memory
