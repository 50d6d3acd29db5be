package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sphered/internal/config"
)

type commandContext struct {
	configFlag   *string
	pidFileFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, pidFileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		pidFileFlag:  pidFileFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if override := flagValue(c.pidFileFlag); override != "" {
			expanded, err := config.ExpandPath(override)
			if err != nil {
				c.configErr = fmt.Errorf("resolve pid file: %w", err)
				return
			}
			cfg.Paths.PIDFile = expanded
		}
		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// pidFile resolves the record location from --pid-file, then the settings
// file, then the built-in default. An unreadable settings file is reported on
// warn and does not stop the lookup, so stop and status always answer.
func (c *commandContext) pidFile(warn io.Writer) string {
	if override := flagValue(c.pidFileFlag); override != "" {
		if expanded, err := config.ExpandPath(override); err == nil {
			return expanded
		}
		return override
	}
	cfg, err := c.ensureConfig()
	if err == nil && cfg != nil {
		return cfg.Paths.PIDFile
	}
	if err != nil && warn != nil {
		fmt.Fprintf(warn, "warn: ignoring settings (%v); using %s\n", err, config.DefaultPIDFile())
	}
	return config.DefaultPIDFile()
}

func (c *commandContext) logLevel() string {
	return flagValue(c.logLevelFlag)
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
