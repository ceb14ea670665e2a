// Package history journals every delivery decision in a local SQLite database.
//
// The journal is append-only. It backs `mangadrop history` and lets operators
// see why an artifact was queued instead of delivered long after the queue
// record itself has been replayed and removed.
package history
