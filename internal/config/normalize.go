package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMigrate()
	c.normalizeHashing()
	c.normalizeExifTool()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MEDIASORT_STATE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMigrate() {
	if c.Migrate.Workers <= 0 {
		c.Migrate.Workers = defaultWorkers
	}
	if c.Migrate.Workers > maxWorkers {
		c.Migrate.Workers = maxWorkers
	}
	exts := make([]string, 0, len(c.Migrate.Extensions))
	seen := make(map[string]struct{}, len(c.Migrate.Extensions))
	for _, ext := range c.Migrate.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Migrate.Extensions = exts
	if c.Classify.MinYear <= 0 {
		c.Classify.MinYear = defaultMinYear
	}
}

func (c *Config) normalizeHashing() {
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	if c.Hashing.Algorithm == "" {
		c.Hashing.Algorithm = defaultHashAlgorithm
	}
	if c.Hashing.BufferSize <= 0 {
		c.Hashing.BufferSize = defaultHashBufferSize
	}
	if c.Hashing.BufferSize < minHashBufferSize {
		c.Hashing.BufferSize = minHashBufferSize
	}
}

func (c *Config) normalizeExifTool() {
	c.ExifTool.Binary = strings.TrimSpace(c.ExifTool.Binary)
	if c.ExifTool.Binary == "" {
		c.ExifTool.Binary = defaultExifToolBinary
	}
	if c.ExifTool.TimeoutSeconds <= 0 {
		c.ExifTool.TimeoutSeconds = defaultExifToolTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}
