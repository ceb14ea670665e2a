package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs deletes *.log files in dir last modified more than retentionDays
// ago. The active log file is never removed. It returns how many files went.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	pruned := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LogFileName || filepath.Ext(name) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "stale log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		pruned++
	}
	if pruned > 0 && logger != nil {
		logger.Debug("stale logs pruned",
			String(FieldEventType, "log_pruned"),
			String("dir", dir),
			Int("count", pruned),
		)
	}
	return pruned
}
