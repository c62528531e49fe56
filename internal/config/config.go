package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete adunit configuration
type Config struct {
	Unit      UnitConfig      `mapstructure:"unit"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// UnitConfig controls the interstitial ad unit
type UnitConfig struct {
	// ID is the ad unit identifier used in logs and metrics.
	// If empty, a random ID is generated per run.
	ID string `mapstructure:"id"`
	// StrictThreading makes Show panic when called off the UI execution
	// context instead of returning an error (default: false)
	StrictThreading bool `mapstructure:"strict_threading"`
}

// SimulatorConfig controls the simulated load coordinator
type SimulatorConfig struct {
	// LoadLatencyMs is how long a simulated ad request takes (default: 300)
	LoadLatencyMs int `mapstructure:"load_latency_ms"`
	// LatencyJitterMs adds up to this much random latency per request (default: 100)
	LatencyJitterMs int `mapstructure:"latency_jitter_ms"`
	// FillRate is the probability in [0,1] that a request is filled (default: 1.0)
	FillRate float64 `mapstructure:"fill_rate"`
	// FailureKind is the error reported for unfilled requests.
	// Options: "no_fill", "timeout", "network" (default: "no_fill")
	FailureKind string `mapstructure:"failure_kind"`
	// ExpiresAfterMs makes a loaded creative report not-ready after this
	// long (0 = never expires)
	ExpiresAfterMs int `mapstructure:"expires_after_ms"`
	// AutoDismissMs dismisses a presented creative after this long
	// (0 = wait for an explicit dismiss)
	AutoDismissMs int `mapstructure:"auto_dismiss_ms"`
	// Seed makes fill decisions reproducible (0 = seeded from the clock)
	Seed int64 `mapstructure:"seed"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory the log file is written to.
	// If empty, defaults to a "logs" directory under the config directory.
	// Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
}

// TelemetryConfig controls lifecycle metrics
type TelemetryConfig struct {
	// Enabled records lifecycle metrics and prints a summary when a
	// command finishes (default: true)
	Enabled bool `mapstructure:"enabled"`
}

// ResolveDir returns the resolved log directory path.
// If Dir is empty, it returns the default path under ConfigDir.
// If Dir starts with ~, it expands to the user's home directory.
func (l *LoggingConfig) ResolveDir() string {
	if l.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}

	path := l.Dir

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Unit: UnitConfig{
			ID:              "",
			StrictThreading: false,
		},
		Simulator: SimulatorConfig{
			LoadLatencyMs:   300,
			LatencyJitterMs: 100,
			FillRate:        1.0,
			FailureKind:     "no_fill",
			ExpiresAfterMs:  0, // Creatives never expire by default
			AutoDismissMs:   0, // Wait for an explicit dismiss
			Seed:            0,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// LoadLatency returns the base load latency as a time.Duration
func (c *SimulatorConfig) LoadLatency() time.Duration {
	return time.Duration(c.LoadLatencyMs) * time.Millisecond
}

// LatencyJitter returns the maximum extra latency as a time.Duration
func (c *SimulatorConfig) LatencyJitter() time.Duration {
	return time.Duration(c.LatencyJitterMs) * time.Millisecond
}

// ExpiresAfter returns the creative lifetime (0 means never)
func (c *SimulatorConfig) ExpiresAfter() time.Duration {
	return time.Duration(c.ExpiresAfterMs) * time.Millisecond
}

// AutoDismiss returns the auto-dismiss delay (0 means disabled)
func (c *SimulatorConfig) AutoDismiss() time.Duration {
	return time.Duration(c.AutoDismissMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Unit defaults
	viper.SetDefault("unit.id", defaults.Unit.ID)
	viper.SetDefault("unit.strict_threading", defaults.Unit.StrictThreading)

	// Simulator defaults
	viper.SetDefault("simulator.load_latency_ms", defaults.Simulator.LoadLatencyMs)
	viper.SetDefault("simulator.latency_jitter_ms", defaults.Simulator.LatencyJitterMs)
	viper.SetDefault("simulator.fill_rate", defaults.Simulator.FillRate)
	viper.SetDefault("simulator.failure_kind", defaults.Simulator.FailureKind)
	viper.SetDefault("simulator.expires_after_ms", defaults.Simulator.ExpiresAfterMs)
	viper.SetDefault("simulator.auto_dismiss_ms", defaults.Simulator.AutoDismissMs)
	viper.SetDefault("simulator.seed", defaults.Simulator.Seed)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adunit")
	}
	// Fall back to ~/.config/adunit
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adunit"
	}
	return filepath.Join(home, ".config", "adunit")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidFailureKinds returns the list of valid simulator failure kinds
func ValidFailureKinds() []string {
	return []string{"no_fill", "timeout", "network"}
}

// IsValidFailureKind checks if the given failure kind is valid
func IsValidFailureKind(kind string) bool {
	for _, valid := range ValidFailureKinds() {
		if kind == valid {
			return true
		}
	}
	return false
}
