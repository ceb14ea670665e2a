package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"mangadrop/internal/delivery"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// resultJSON is the --json shape of a delivery result.
type resultJSON struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Added    bool   `json:"added"`
}

func resultsJSON(results []delivery.Result) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{
			FileName: r.FileName,
			Status:   string(r.Outcome.Status),
			Reason:   r.Outcome.Reason,
			Added:    r.Added,
		})
	}
	return out
}

// renderResults prints one status line per delivery result.
func renderResults(w io.Writer, results []delivery.Result) {
	colorize := shouldColorize(w)
	for _, r := range results {
		kind := statusOK
		message := "delivered"
		if !r.Outcome.Delivered() {
			kind = statusWarn
			message = "queued (" + strings.ReplaceAll(r.Outcome.Reason, "_", " ") + ")"
		}
		if r.Outcome.Delivered() && !r.Added {
			message += ", already on device"
		}
		fmt.Fprintln(w, renderStatusLine(r.FileName, kind, message, colorize))
	}
}

func countOutcomes(results []delivery.Result) (delivered, queued int) {
	for _, r := range results {
		if r.Outcome.Delivered() {
			delivered++
		} else {
			queued++
		}
	}
	return delivered, queued
}
