package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateClassify(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateClassify() error {
	if c.Classify.MinYear > time.Now().Year() {
		return fmt.Errorf("classify.min_year %d is in the future", c.Classify.MinYear)
	}
	return nil
}

func (c *Config) validateHashing() error {
	if !slices.Contains(HashAlgorithms, c.Hashing.Algorithm) {
		return fmt.Errorf("hashing.algorithm: unsupported value %q (valid: %v)", c.Hashing.Algorithm, HashAlgorithms)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
