package main

import (
	"strings"
	"sync"

	"localdeck/internal/config"
	"localdeck/internal/content"
	"localdeck/internal/registry"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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
		c.config = cfg
	})
	return c.config, c.configErr
}

// openRegistry opens the track database directly. The registry runs in WAL
// mode, so reads and writes here coexist with a running daemon.
func (c *commandContext) openRegistry() (*registry.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return registry.Open(cfg.RegistryPath())
}

func (c *commandContext) openContent() (*content.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return content.Open(cfg.ContentDir())
}
