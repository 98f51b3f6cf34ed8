// Package store provides SQLite-backed storage for the reference persistence
// service.
//
// A Store satisfies remote.Service, so the editor can run directly against a
// local database as well as behind the HTTP server in package server.
//
// # Identity
//
// Signer and field rows are keyed by (agreement_id, uid). The INTEGER primary
// key of a row is its server id; it is assigned on first insert and kept for
// as long as the uid stays in the collection.
//
// # Full-collection writes
//
// SyncSigners and SyncInputFields replace a collection in one transaction:
// rows are upserted by uid in payload order and rows whose uid is absent
// from the payload are deleted. The canonical content hash of the last
// accepted payload is kept on the agreement; a payload with the same hash
// skips the rewrite and only reads back ids.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
