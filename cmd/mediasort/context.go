package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediasort/internal/config"
	"mediasort/internal/database"
	"mediasort/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// newLogger rotates and prunes the log directory, then builds a logger that
// writes to w and tees JSON into the log file.
func (c *commandContext) newLogger(w io.Writer) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := logging.RotateIfLarge(cfg.Paths.LogDir, int64(cfg.Logging.MaxSizeMB)*1024*1024); err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.NewFromConfig(cfg, w, c.logLevel())
	if err != nil {
		return nil, nil, err
	}
	logging.PruneRotated(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)
	return logger, closer, nil
}

// withDB opens the index database for the duration of fn.
func (c *commandContext) withDB(ctx context.Context, fn func(*database.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.IndexPath())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
