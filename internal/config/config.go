package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// USBRoot identifies a library root on removable storage by volume label.
type USBRoot struct {
	Label string `toml:"label"`
	Path  string `toml:"path"`
}

// Library contains configuration for the music library sources scanned
// during ingestion.
type Library struct {
	Roots          []string  `toml:"roots"`
	USB            []USBRoot `toml:"usb"`
	FollowSymlinks bool      `toml:"follow_symlinks"`
	IgnoredDirs    []string  `toml:"ignored_dirs"`
}

// Fetch contains configuration for the external fallback fetcher.
type Fetch struct {
	TimeoutSeconds  int `toml:"timeout_seconds"`
	RatePerMinute   int `toml:"rate_per_minute"`
	FailureCooldown int `toml:"failure_cooldown_seconds"`
}

// Timeout returns the fetch deadline as a duration.
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Cooldown returns the failed-source retry window as a duration.
func (f Fetch) Cooldown() time.Duration {
	return time.Duration(f.FailureCooldown) * time.Second
}

// Playback contains configuration for the deck output.
type Playback struct {
	Player     string   `toml:"player"`
	PlayerArgs []string `toml:"player_args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// PublicEndpoint describes the base URL printed on QR codes and NFC chips.
// Once cards are printed this value must never produce a different query
// shape; only the host part may move.
type PublicEndpoint struct {
	BaseURL string `toml:"base_url"`
}

// Config encapsulates all configuration values for localdeck.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Library: music directories scanned by `localdeck library update`
//   - Fetch: fallback download timeouts and rate limits
//   - Playback: deck player command
//   - Logging: log format and level
//   - PublicEndpoint: base URL used when generating card URLs
type Config struct {
	Paths          Paths          `toml:"paths"`
	Library        Library        `toml:"library"`
	Fetch          Fetch          `toml:"fetch"`
	Playback       Playback       `toml:"playback"`
	Logging        Logging        `toml:"logging"`
	PublicEndpoint PublicEndpoint `toml:"public_endpoint"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/localdeck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("localdeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.ContentDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ContentDir returns the content store root below the data directory.
func (c *Config) ContentDir() string {
	return filepath.Join(c.Paths.DataDir, "content")
}

// RegistryPath returns the path of the track registry database.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.DataDir, "localdeck.db")
}

// LockPath returns the daemon single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "localdeckd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
