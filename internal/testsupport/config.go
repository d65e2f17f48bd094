// Package testsupport provides shared helpers for package tests: disposable
// configurations and pre-opened stores rooted in per-test temp directories.
package testsupport

import (
	"path/filepath"
	"testing"

	"localdeck/internal/config"
	"localdeck/internal/content"
	"localdeck/internal/registry"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Fetch.TimeoutSeconds = 5
	cfg.Fetch.FailureCooldown = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithLibraryRoots sets the scanned library roots on the test config.
func WithLibraryRoots(roots ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Library.Roots = roots
	}
}

// WithBaseURL overrides the public endpoint base URL.
func WithBaseURL(base string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.PublicEndpoint.BaseURL = base
	}
}

// MustOpenRegistry opens a registry store for the config and closes it when
// the test ends.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()
	store, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close registry: %v", err)
		}
	})
	return store
}

// MustOpenContent opens the content store for the config.
func MustOpenContent(t testing.TB, cfg *config.Config) *content.Store {
	t.Helper()
	store, err := content.Open(cfg.ContentDir())
	if err != nil {
		t.Fatalf("open content store: %v", err)
	}
	return store
}
