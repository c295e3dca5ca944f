// Package cli implements the reqlint command-line interface.
//
// Commands operate on pip requirements manifests: lint checks syntactic and
// consistency properties, fmt rewrites specifiers in canonical form, check and
// outdated verify constraints against the package registry, cache manages the
// HTTP response cache, and serve exposes lint and check over HTTP.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/reqlint/reqlint/pkg/buildinfo"
	"github.com/reqlint/reqlint/pkg/cache"
	"github.com/reqlint/reqlint/pkg/check"
	"github.com/reqlint/reqlint/pkg/config"
	"github.com/reqlint/reqlint/pkg/pypi"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "reqlint"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string // --config override, empty means discover
	noCache    bool   // --no-cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "reqlint",
		Short:        "Reqlint checks pip requirements manifests",
		Long:         `Reqlint parses, lints, formats, and verifies pip requirements manifests (requirements.txt): every line must be a valid package specifier, and no package may carry duplicate or conflicting version constraints.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: .reqlint.toml next to the manifest)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the HTTP response cache")

	// Register all subcommands
	root.AddCommand(c.lintCommand())
	root.AddCommand(c.fmtCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig resolves configuration for a manifest: the --config file when
// given, otherwise discovery relative to the manifest's directory.
func (c *CLI) loadConfig(manifestPath string) (*config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	dir := "."
	if manifestPath != "" {
		dir = filepath.Dir(manifestPath)
	}
	return config.Discover(dir)
}

// =============================================================================
// Registry Client Factory
// =============================================================================

// newRegistry creates a PyPI client wired with the configured cache backend,
// base URL, and timeout.
func (c *CLI) newRegistry(ctx context.Context, cfg *config.Config) (*pypi.Client, error) {
	backend, err := c.newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := pypi.NewClient(backend, cfg.CacheTTL())
	if cfg.Registry.URL != "" {
		client.SetBaseURL(cfg.Registry.URL)
	}
	client.SetTimeout(cfg.RegistryTimeout())
	return client, nil
}

// newChecker creates a registry checker from configuration.
func (c *CLI) newChecker(ctx context.Context, cfg *config.Config) (*check.Checker, error) {
	client, err := c.newRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return check.New(check.PyPI{Client: client}), nil
}

// newBackend selects the cache backend: --no-cache forces the null cache,
// otherwise [cache].backend decides. A file cache that cannot be created
// degrades to no caching rather than failing the command.
func (c *CLI) newBackend(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.Cache.RedisAddr})
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/reqlint/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
