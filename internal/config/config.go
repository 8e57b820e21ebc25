package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Migrate controls how a migration pass treats each source file.
type Migrate struct {
	// Workers bounds the hash prefetch pool. 1 keeps hashing on the decision loop.
	Workers int `toml:"workers"`
	// UseMetadata consults exiftool for files whose names carry no date.
	UseMetadata bool `toml:"use_metadata"`
	// MtimeFallback classifies by modification time when nothing else matched.
	MtimeFallback bool `toml:"mtime_fallback"`
	// Extensions extends the built-in media allow-list (".heif", "dng", ...).
	Extensions []string `toml:"extensions"`
}

// Classify contains the date classification policy.
type Classify struct {
	// DayFirst prefers DD-MM-YYYY over MM-DD-YYYY when both readings are valid.
	DayFirst bool `toml:"day_first"`
	MinYear  int  `toml:"min_year"`
}

// Hashing selects the content digest used by the hash index.
type Hashing struct {
	Algorithm  string `toml:"algorithm"`
	BufferSize int    `toml:"buffer_size"`
}

// ExifTool configures the external metadata reader.
type ExifTool struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes rotated log files older than this many days. 0 keeps them.
	RetentionDays int `toml:"retention_days"`
	// MaxSizeMB rotates mediasort.log once it grows past this size.
	MaxSizeMB int `toml:"max_size_mb"`
}

// Config encapsulates all configuration values for mediasort.
//
// Configuration sections by subsystem:
//   - Paths: hash index database, lock files and logs
//   - Migrate: worker pool and classification fallbacks
//   - Classify: DD-MM/MM-DD tie-break policy and year floor
//   - Hashing: digest algorithm and read buffer size
//   - ExifTool: metadata reader binary and timeout
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Migrate  Migrate  `toml:"migrate"`
	Classify Classify `toml:"classify"`
	Hashing  Hashing  `toml:"hashing"`
	ExifTool ExifTool `toml:"exiftool"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the user configuration file, honouring
// $XDG_CONFIG_HOME when set.
func DefaultConfigPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return expandPath(filepath.Join(base, "mediasort", "config.toml"))
	}
	return expandPath("~/.config/mediasort/config.toml")
}

// Load reads the configuration at path, or the first file found on the search
// path when path is empty. A missing file yields defaults. It returns the
// config, the path that was (or would have been) read and whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile overlays the TOML file at path onto cfg. Unknown keys are errors
// so a typo never silently falls back to a default.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// searchPaths lists the implicit config locations in priority order.
func searchPaths() ([]string, error) {
	user, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	local, err := filepath.Abs("mediasort.toml")
	if err != nil {
		return nil, err
	}
	return []string{user, local}, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	candidates, err := searchPaths()
	if err != nil {
		return "", false, err
	}
	for _, candidate := range candidates {
		if exists, err := isFile(candidate); err == nil && exists {
			return candidate, true, nil
		}
	}
	return candidates[0], false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IndexPath returns the SQLite database that holds the hash index and checkpoints.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.StateDir, "index.db")
}

// LockDir returns the directory holding per-destination lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// ExifToolTimeout bounds a single metadata read.
func (c *Config) ExifToolTimeout() time.Duration {
	return time.Duration(c.ExifTool.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
