package logging

import (
	"context"
	"log/slog"
)

// splitHandler sends each record to the console handler and the log file
// handler. Each side applies its own level.
type splitHandler struct {
	console slog.Handler
	file    slog.Handler
}

// newSplitHandler pairs console with file. A nil file returns console alone.
func newSplitHandler(console, file slog.Handler) slog.Handler {
	if file == nil {
		return console
	}
	return &splitHandler{console: console, file: file}
}

func (h *splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

// Handle writes the file side first so the log file stays complete when the
// terminal has gone away.
func (h *splitHandler) Handle(ctx context.Context, record slog.Record) error {
	var fileErr error
	if h.file.Enabled(ctx, record.Level) {
		fileErr = h.file.Handle(ctx, record.Clone())
	}
	if h.console.Enabled(ctx, record.Level) {
		if err := h.console.Handle(ctx, record); err != nil {
			return err
		}
	}
	return fileErr
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}
