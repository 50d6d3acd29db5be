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
	c.normalizeLogging()
	c.normalizeSource()
	c.normalizeHooks()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.PIDFile) == "" {
		c.Paths.PIDFile = DefaultPIDFile()
	}
	if c.Paths.PIDFile, err = expandPath(c.Paths.PIDFile); err != nil {
		return fmt.Errorf("paths.pid_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSource() {
	if value, ok := os.LookupEnv(helperEnvOverride); ok && strings.TrimSpace(value) != "" {
		c.Source.HelperCommand = value
	}
	c.Source.HelperCommand = strings.TrimSpace(c.Source.HelperCommand)
	if c.Source.HelperCommand == "" {
		c.Source.HelperCommand = defaultHelperCommand
	}
}

func (c *Config) normalizeHooks() {
	c.Hooks.Shell = strings.TrimSpace(c.Hooks.Shell)
	if c.Hooks.Shell == "" {
		c.Hooks.Shell = defaultHookShell
	}
	c.Hooks.ProjectEnv = strings.TrimSpace(c.Hooks.ProjectEnv)
	if c.Hooks.ProjectEnv == "" {
		c.Hooks.ProjectEnv = defaultProjectEnv
	}
}
