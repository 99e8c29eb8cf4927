// Package config loads flowvault configuration from a YAML file with
// sensible defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Query    QueryConfig    `yaml:"query"`
}

// DatabaseConfig holds storage location and durability knobs.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
	// JournalMode is the SQLite journal mode (default WAL).
	JournalMode string `yaml:"journal_mode"`
	// Synchronous is the SQLite synchronous level (default NORMAL).
	// OFF increases ingest speed at the risk of losing the most recent
	// flows on power failure.
	Synchronous string `yaml:"synchronous"`
	// BusyTimeoutMS bounds lock waits in milliseconds (default 5000).
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

// QueryConfig caps query result sizes.
type QueryConfig struct {
	// DefaultLimit is the page size used when a caller passes none.
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit caps the page size a caller may request.
	MaxLimit int `yaml:"max_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Database: DatabaseConfig{
			Path:          filepath.Join(home, ".flowvault", "flows.db"),
			JournalMode:   "WAL",
			Synchronous:   "NORMAL",
			BusyTimeoutMS: 5000,
		},
		Query: QueryConfig{
			DefaultLimit: 50,
			MaxLimit:     1000,
		},
	}
}

// Load reads configuration from path, applying defaults for absent fields.
// A missing file is not an error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	d := Default()
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Database.JournalMode == "" {
		c.Database.JournalMode = d.Database.JournalMode
	}
	if c.Database.Synchronous == "" {
		c.Database.Synchronous = d.Database.Synchronous
	}
	if c.Database.BusyTimeoutMS <= 0 {
		c.Database.BusyTimeoutMS = d.Database.BusyTimeoutMS
	}
	if c.Query.DefaultLimit <= 0 {
		c.Query.DefaultLimit = d.Query.DefaultLimit
	}
	if c.Query.MaxLimit <= 0 {
		c.Query.MaxLimit = d.Query.MaxLimit
	}
	return c
}
