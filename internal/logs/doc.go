// Package logs reads the mangadrop log file for `mangadrop logs`.
//
// Tail returns the last N lines with bounded memory and the byte offset
// where reading stopped. Follow keeps reading from that offset until the
// context is cancelled, which is how `mangadrop logs --follow` watches a
// checkout or watch process running in another terminal.
package logs
