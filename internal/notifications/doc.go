// Package notifications publishes delivery summaries to ntfy.
//
// A checkout or a queue flush can finish long after the user walked away
// from the terminal, so the CLI posts one short message per batch to the
// topic configured under [notifications]. An empty topic yields a no-op
// service. Notification failures are logged by callers and never fail a
// delivery.
package notifications
