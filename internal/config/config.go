// Package config provides configuration management for bayesnet.
//
// Config file locations (priority order):
//  1. $BAYESNET_CONFIG
//  2. ./bayesnet.yaml
//  3. $XDG_CONFIG_HOME/bayesnet/config.yaml
//  4. ~/.config/bayesnet/config.yaml
//  5. /etc/bayesnet/config.yaml
//
// Command-line flags override values from the file.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Algorithm selections accepted in inference.algorithm
const (
	AlgorithmEnumeration = "enumeration"
	AlgorithmElimination = "elimination"
	AlgorithmBoth        = "both"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Inference.Algorithm == "" {
		c.Inference.Algorithm = AlgorithmEnumeration
	}
	if c.Inference.Tolerance == 0 {
		c.Inference.Tolerance = 1e-6
	}
	if c.Database.Path == "" {
		c.Database.Path = "./bayesnet.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(60 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Benchmark.Repeat == 0 {
		c.Benchmark.Repeat = 1
	}
}

// Validate rejects values no component can act on
func (c *Config) Validate() error {
	algorithms := []string{AlgorithmEnumeration, AlgorithmElimination, AlgorithmBoth}
	if !slices.Contains(algorithms, c.Inference.Algorithm) {
		return fmt.Errorf("inference.algorithm %q must be one of %v", c.Inference.Algorithm, algorithms)
	}
	if c.Inference.Tolerance < 0 {
		return fmt.Errorf("inference.tolerance must not be negative")
	}
	if c.Benchmark.Parallel < 0 {
		return fmt.Errorf("benchmark.parallel must not be negative")
	}
	if c.Benchmark.Repeat < 1 {
		return fmt.Errorf("benchmark.repeat must be at least 1")
	}
	if f := c.Logging.Format; f != "json" && f != "console" {
		return fmt.Errorf("logging.format %q must be json or console", f)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Algorithm: %s, Tolerance: %g\n", c.Inference.Algorithm, c.Inference.Tolerance)
	summary += fmt.Sprintf("Strict CPTs: %t, Database: %s\n", c.Loader.RequireCompleteCPTs, c.Database.Path)
	summary += fmt.Sprintf("Server: %s, Watching: %d file(s)", c.Server.Addr, len(c.Server.Watch))
	return summary
}
