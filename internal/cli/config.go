package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
)

// Config holds solver defaults and backend selection, loaded from
// ~/.config/pivot/config.toml. Command-line flags override file values.
type Config struct {
	Solver   SolverConfig   `toml:"solver"`
	Cache    CacheConfig    `toml:"cache"`
	Sessions SessionsConfig `toml:"sessions"`
}

// SolverConfig carries per-solve defaults.
type SolverConfig struct {
	MaxIterations int     `toml:"max_iterations"`
	Tolerance     float64 `toml:"tolerance"`
	MaxDepth      int     `toml:"max_depth"`
	MaxNodes      int     `toml:"max_nodes"`
	MaxCuts       int     `toml:"max_cuts"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis" or "none".
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// SessionsConfig selects and configures the solve-history backend.
type SessionsConfig struct {
	// Backend is "file" (default) or "mongo".
	Backend         string `toml:"backend"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			MaxIterations: lp.DefaultMaxIterations,
			Tolerance:     lp.DefaultTolerance,
			MaxDepth:      milp.DefaultMaxDepth,
			MaxNodes:      milp.DefaultMaxNodes,
			MaxCuts:       milp.DefaultMaxCuts,
		},
		Cache:    CacheConfig{Backend: "file"},
		Sessions: SessionsConfig{Backend: "file"},
	}
}

// configPath returns the config file location (~/.config/pivot/config.toml),
// honoring XDG_CONFIG_HOME.
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// LoadConfig reads the config file, falling back to defaults when the file
// is missing or unreadable. A malformed file falls back silently too; the
// CLI must stay usable without configuration.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	path, err := configPath()
	if err != nil {
		return cfg
	}
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	loaded := DefaultConfig()
	if _, err := toml.DecodeFile(path, loaded); err != nil {
		return cfg
	}
	return loaded
}
