package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateDisplay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCache() error {
	if c.Cache.DiskWindow < 0 {
		return errors.New("cache.disk_window must be >= 0")
	}
	if c.Cache.ThrottleMS < 0 {
		return errors.New("cache.throttle_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if c.Renderer.TimeoutSeconds < 0 {
		return errors.New("renderer.timeout_seconds must be >= 0 (0 disables the timeout)")
	}
	return nil
}

func (c *Config) validateDisplay() error {
	d := c.Display
	if d.MinScale <= 0 {
		return errors.New("display.min_scale must be positive")
	}
	if d.MaxScale < d.MinScale {
		return errors.New("display.max_scale must be >= display.min_scale")
	}
	if d.ScaleStep <= 0 {
		return errors.New("display.scale_step must be positive")
	}
	if d.DefaultScale < d.MinScale || d.DefaultScale > d.MaxScale {
		return fmt.Errorf("display.default_scale must be between %.2f and %.2f", d.MinScale, d.MaxScale)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
