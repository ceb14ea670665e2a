// Package logging assembles structured slog loggers for mangadrop.
//
// It owns the console and JSON handlers, fans terminal output and the
// persistent log file out from a single logger, and exposes context helpers
// so fetch, assembly, and delivery code tag every line with the batch and
// unit being processed.
package logging
