package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validatePublicEndpoint()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
			return fmt.Errorf("paths.api_bind: invalid host:port %q: %w", c.Paths.APIBind, err)
		}
	}
	return nil
}

func (c *Config) validateLibrary() error {
	for _, entry := range c.Library.USB {
		if entry.Label == "" {
			return errors.New("library.usb entries require a volume label")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePublicEndpoint() error {
	if c.PublicEndpoint.BaseURL == "" {
		return errors.New("public_endpoint.base_url must be set")
	}
	parsed, err := url.Parse(c.PublicEndpoint.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("public_endpoint.base_url: %q is not an absolute URL", c.PublicEndpoint.BaseURL)
	}
	return nil
}
