// Package history keeps a SQLite log of executed Druid requests.
//
// Each entry stores the canonical request alongside its fingerprint, the
// resolved shape, the data source, the outcome and the round-trip
// duration. Entries are ordered by seq, a logical sequence number assigned
// on insert, never by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
package history
