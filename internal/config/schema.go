package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Inference InferenceConfig `yaml:"inference"`
	Loader    LoaderConfig    `yaml:"loader"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
}

// InferenceConfig selects the default algorithm and agreement tolerance
type InferenceConfig struct {
	Algorithm string  `yaml:"algorithm"` // enumeration, elimination, both
	Tolerance float64 `yaml:"tolerance"` // max difference before engines are reported as disagreeing
}

// LoaderConfig holds network loading settings
type LoaderConfig struct {
	// RequireCompleteCPTs rejects networks missing a CPT row for any
	// parent combination. When false missing rows read as probability 0.
	RequireCompleteCPTs bool `yaml:"require_complete_cpts"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	Watch           []string `yaml:"watch,omitempty"` // network files reloaded on change
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	HistoryLimit    int      `yaml:"history_limit"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// BenchmarkConfig holds benchmark runner settings
type BenchmarkConfig struct {
	Parallel int `yaml:"parallel"` // concurrent cases, 0 = GOMAXPROCS
	Repeat   int `yaml:"repeat"`   // runs per case, the mean time is reported
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
