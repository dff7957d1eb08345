// Package cli implements the pivot command-line interface.
//
// This package provides commands for solving linear and mixed-integer
// models, analyzing their geometry, post-optimal sensitivity analysis,
// exporting branch-and-bound search trees, serving the HTTP API, and
// managing the result cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - solve: Solve a model with one of the engines (simplex, revised, bnb, cuts)
//   - analyze: Classify a model (infeasibility causes, degeneracy, rays)
//   - sensitivity: Post-optimal ranging, shadow prices, and the dual model
//   - tree: Export the branch-and-bound search tree as DOT or SVG
//   - serve: Run the HTTP solve API
//   - cache: Manage the result cache
//   - interactive: Menu-driven solve workflow
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/buildinfo"
	"github.com/matzehuels/pivot/pkg/cache"
	"github.com/matzehuels/pivot/pkg/session"
)

// appName is the application name used for directories and display.
const appName = "pivot"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger and the config
// file loaded (or defaults when no file exists).
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: LoadConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pivot",
		Short:        "Pivot solves linear and mixed-integer programs",
		Long:         `Pivot is a simplex-based LP/MILP solver: it reads small text models, solves them with a tableau or revised simplex engine, searches integer solutions by branch-and-bound or cutting planes, and explains the result (steps, sensitivity, search trees).`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.solveCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.sensitivityCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.interactiveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newCache builds the result cache from the config, honoring --no-cache.
// Backend failures degrade to the null cache so solving still works.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache || c.Config.Cache.Backend == "none" {
		return cache.NewNullCache()
	}
	if c.Config.Cache.Backend == "redis" {
		store, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "err", err)
			return cache.NewNullCache()
		}
		return store
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable, caching disabled", "err", err)
		return cache.NewNullCache()
	}
	return store
}

// newStore builds the session store from the config.
func (c *CLI) newStore(ctx context.Context) (session.Store, error) {
	if c.Config.Sessions.Backend == "mongo" {
		return session.NewMongoStore(ctx, session.MongoOptions{
			URI:        c.Config.Sessions.MongoURI,
			Database:   c.Config.Sessions.MongoDatabase,
			Collection: c.Config.Sessions.MongoCollection,
		})
	}
	return session.NewFileStore("")
}

// cacheDir returns the cache directory using XDG standard (~/.cache/pivot/).
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
