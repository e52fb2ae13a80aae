// Package store persists registry snapshots and the placement journal
// in SQLite.
//
// Snapshots are content-addressed: the row key is the canonical-JSON
// SHA-256 fingerprint of the encoded registry, so saving an unchanged
// registry inserts nothing. The journal keys rows by placement
// operation ID (UUIDv7), which keeps it append-only, idempotent under
// replay, and chronologically ordered.
//
// The database runs in WAL mode with a single writer connection;
// callers are single-threaded like the rest of the engine.
package store
