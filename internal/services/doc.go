// Package services defines shared utilities consumed by the assembly and
// delivery pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs and unit titles for logging.
//   - Structured error markers plus the Wrap helper so callers can tell
//     expected routing conditions (device absent, no space) apart from real
//     failures (fetch, packaging, corrupt stores).
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
