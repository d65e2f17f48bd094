package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizePlayback()
	c.normalizeLogging()
	c.normalizePublicEndpoint()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeLibrary() error {
	roots := make([]string, 0, len(c.Library.Roots))
	for _, root := range c.Library.Roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("library.roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Library.Roots = roots

	// Ignored entries are directory names matched during the walk, not
	// paths, so they are never expanded.
	ignored := make([]string, 0, len(c.Library.IgnoredDirs))
	for _, dir := range c.Library.IgnoredDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		ignored = append(ignored, trimmed)
	}
	c.Library.IgnoredDirs = ignored

	usb := make([]USBRoot, 0, len(c.Library.USB))
	for _, entry := range c.Library.USB {
		entry.Label = strings.TrimSpace(entry.Label)
		entry.Path = strings.TrimSpace(entry.Path)
		if entry.Label == "" && entry.Path == "" {
			continue
		}
		usb = append(usb, entry)
	}
	c.Library.USB = usb
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.RatePerMinute <= 0 {
		c.Fetch.RatePerMinute = defaultFetchRate
	}
	if c.Fetch.FailureCooldown <= 0 {
		c.Fetch.FailureCooldown = defaultFailureCooldown
	}
}

func (c *Config) normalizePlayback() {
	c.Playback.Player = strings.TrimSpace(c.Playback.Player)
	if c.Playback.Player == "" {
		c.Playback.Player = defaultPlayer
	}
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

func (c *Config) normalizePublicEndpoint() {
	c.PublicEndpoint.BaseURL = strings.TrimSpace(c.PublicEndpoint.BaseURL)
}
