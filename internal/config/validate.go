package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	if strings.ContainsAny(c.Hooks.ProjectEnv, "= ") {
		return fmt.Errorf("hooks.project_env %q is not a valid environment variable name", c.Hooks.ProjectEnv)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.IntervalSeconds <= 0 {
		return errors.New("poll.interval_seconds must be positive")
	}
	if c.Poll.CollectionWindowSeconds <= 0 {
		return errors.New("poll.collection_window_seconds must be positive")
	}
	if c.Poll.GraceSeconds < 0 {
		return errors.New("poll.grace_seconds must be zero or positive")
	}
	return nil
}
