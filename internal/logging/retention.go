package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRotated removes rotated log files (mediasort.log.*) in dir older than
// retentionDays. The active log is never touched. Zero disables pruning.
func PruneRotated(logger *slog.Logger, dir string, retentionDays int) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	matches, err := filepath.Glob(filepath.Join(dir, LogFileName+".*"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	return removed
}

// RotateIfLarge renames the active log to mediasort.log.<timestamp> once it
// exceeds maxBytes, so PruneRotated can age it out.
func RotateIfLarge(dir string, maxBytes int64) error {
	if dir == "" || maxBytes <= 0 {
		return nil
	}
	active := filepath.Join(dir, LogFileName)
	info, err := os.Stat(active)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < maxBytes {
		return nil
	}
	return os.Rename(active, active+"."+time.Now().UTC().Format("20060102T150405"))
}
