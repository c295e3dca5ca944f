// Package config loads reqlint configuration from TOML files.
//
// Configuration is discovered as .reqlint.toml next to the manifest being
// checked, falling back to $XDG_CONFIG_HOME/reqlint/config.toml (or
// ~/.config/reqlint/config.toml). Missing files are not an error; defaults
// apply.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reqlint/reqlint/pkg/errors"
)

const appName = "reqlint"

// Config is the full tool configuration.
type Config struct {
	Rules    Rules    `toml:"rules"`
	Registry Registry `toml:"registry"`
	Cache    Cache    `toml:"cache"`
}

// Rules configures which lint rules run and how findings are reported.
type Rules struct {
	// Disable lists rule IDs to turn off (e.g., "canonical-name").
	Disable []string `toml:"disable"`
	// Enable lists optional rule IDs to turn on ("unpinned", "no-upper-bound").
	Enable []string `toml:"enable"`
	// Severity overrides finding severity per rule ID ("info", "warning", "error").
	Severity map[string]string `toml:"severity"`
	// Ignore lists package names excluded from package-scoped findings.
	Ignore []string `toml:"ignore"`
}

// Registry configures the package index used by check commands.
type Registry struct {
	// URL is the base URL of the PyPI-compatible JSON API.
	URL string `toml:"url"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `toml:"timeout"`
}

// Cache configures HTTP response caching.
type Cache struct {
	// Backend selects the cache: "file", "redis", or "none".
	Backend string `toml:"backend"`
	// TTL is the entry lifetime in hours. 0 means the default (24h).
	TTL int `toml:"ttl"`
	// RedisAddr is the host:port of the Redis server for the redis backend.
	RedisAddr string `toml:"redis_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: Registry{
			URL:     "https://pypi.org/pypi",
			Timeout: 10,
		},
		Cache: Cache{
			Backend: "file",
			TTL:     24,
		},
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Cache.TTL) * time.Hour
}

// RegistryTimeout returns the per-request timeout as a duration.
func (c *Config) RegistryTimeout() time.Duration {
	if c.Registry.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Registry.Timeout) * time.Second
}

// Load reads configuration from path, layered over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return cfg, nil
}

// Discover finds and loads configuration for a manifest in startDir. It looks
// for .reqlint.toml in startDir, then for the user config file. When neither
// exists, defaults are returned.
func Discover(startDir string) (*Config, error) {
	if startDir != "" {
		local := filepath.Join(startDir, ".reqlint.toml")
		if _, err := os.Stat(local); err == nil {
			return Load(local)
		}
	}
	if user, err := userConfigPath(); err == nil {
		if _, err := os.Stat(user); err == nil {
			return Load(user)
		}
	}
	return Default(), nil
}

// userConfigPath returns the XDG config file location
// (~/.config/reqlint/config.toml by default).
func userConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
