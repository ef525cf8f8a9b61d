package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"truthx/internal/config"
	"truthx/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	verboseFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if level := c.logLevel(); level != "" {
			cfg.Logging.Level = level
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.verboseFlag != nil && *c.verboseFlag {
		return "debug"
	}
	if c.logLevelFlag != nil {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return ""
}

// cliLogger logs to stderr so stdout stays clean for rendered output.
func (c *commandContext) cliLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
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
