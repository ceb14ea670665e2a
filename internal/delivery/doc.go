// Package delivery decides where each artifact goes and carries it there.
//
// Decide is the single routing rule: an artifact goes to the device when it
// is connected and has room, otherwise it is parked in the local queue. Fresh
// artifacts and queued records both flow through it, and every decision is
// journaled when a history store is attached. Batch operations hold a
// process-level file lock so only one coordinator mutates the catalog and
// queue at a time.
package delivery
