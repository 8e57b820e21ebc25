package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediasort/internal/config"
)

// LogFileName is the JSON log written under paths.log_dir.
const LogFileName = "mediasort.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives console or JSON output. Defaults to stderr.
	Writer io.Writer
	// FilePath, when set, additionally receives JSON lines regardless of Format.
	FilePath string
	// FileLevel filters the log file separately. Empty keeps debug records so
	// every per-file outcome lands in the file.
	FileLevel   string
	Development bool
}

// New constructs a slog logger using the provided options. The returned closer
// releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	addSource := opts.Development || level <= slog.LevelDebug

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		primary = newJSONHandler(writer, level, addSource)
	case "", "console":
		primary = newPrettyHandler(writer, level, addSource)
	default:
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if strings.TrimSpace(opts.FilePath) == "" {
		return slog.New(primary), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", opts.FilePath, err)
	}
	fileLevel := slog.LevelDebug
	if strings.TrimSpace(opts.FileLevel) != "" {
		fileLevel = parseLevel(opts.FileLevel)
	}
	fileHandler := newJSONHandler(file, fileLevel, addSource)
	return slog.New(newTeeHandler(primary, fileHandler)), file, nil
}

// NewFromConfig creates a logger using application config defaults. A
// non-empty levelOverride (from --log-level) wins over the configured level.
func NewFromConfig(cfg *config.Config, w io.Writer, levelOverride string) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Writer: w})
	}
	level := cfg.Logging.Level
	if strings.TrimSpace(levelOverride) != "" {
		level = levelOverride
	}
	opts := Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Writer: w,
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
