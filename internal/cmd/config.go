package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View adunit configuration",
	Long: `View adunit configuration.

Without arguments, displays the effective configuration. Values come from
the config file, then ADUNIT_* environment variables
(e.g. ADUNIT_SIMULATOR_FILL_RATE=0.5), then built-in defaults.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/adunit/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "unit:")
	fmt.Fprintf(out, "  id: %s\n", orNone(cfg.Unit.ID))
	fmt.Fprintf(out, "  strict_threading: %v\n", cfg.Unit.StrictThreading)

	fmt.Fprintln(out, "simulator:")
	fmt.Fprintf(out, "  load_latency_ms: %d\n", cfg.Simulator.LoadLatencyMs)
	fmt.Fprintf(out, "  latency_jitter_ms: %d\n", cfg.Simulator.LatencyJitterMs)
	fmt.Fprintf(out, "  fill_rate: %g\n", cfg.Simulator.FillRate)
	fmt.Fprintf(out, "  failure_kind: %s\n", cfg.Simulator.FailureKind)
	fmt.Fprintf(out, "  expires_after_ms: %d\n", cfg.Simulator.ExpiresAfterMs)
	fmt.Fprintf(out, "  auto_dismiss_ms: %d\n", cfg.Simulator.AutoDismissMs)
	fmt.Fprintf(out, "  seed: %d\n", cfg.Simulator.Seed)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.ResolveDir())

	fmt.Fprintln(out, "telemetry:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Telemetry.Enabled)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintln(out, used)
		return nil
	}
	fmt.Fprintln(out, config.ConfigFile())
	return nil
}

// defaultConfigFile renders a commented config file holding the defaults.
func defaultConfigFile() string {
	d := config.Default()
	var b strings.Builder
	b.WriteString("# adunit configuration\n\n")

	b.WriteString("unit:\n")
	b.WriteString("  # Identifier used in logs, metrics and events (generated when empty)\n")
	b.WriteString("  id: \"\"\n")
	b.WriteString("  # Panic instead of returning an error when Show is called off the UI context\n")
	fmt.Fprintf(&b, "  strict_threading: %v\n\n", d.Unit.StrictThreading)

	b.WriteString("simulator:\n")
	b.WriteString("  # Base delay before a load result is reported\n")
	fmt.Fprintf(&b, "  load_latency_ms: %d\n", d.Simulator.LoadLatencyMs)
	b.WriteString("  # Random extra delay added to each load\n")
	fmt.Fprintf(&b, "  latency_jitter_ms: %d\n", d.Simulator.LatencyJitterMs)
	b.WriteString("  # Probability that a load fills, from 0 to 1\n")
	fmt.Fprintf(&b, "  fill_rate: %g\n", d.Simulator.FillRate)
	fmt.Fprintf(&b, "  # Failure reported on no fill. Options: %s\n", strings.Join(config.ValidFailureKinds(), ", "))
	fmt.Fprintf(&b, "  failure_kind: %s\n", d.Simulator.FailureKind)
	b.WriteString("  # Loaded ads stop being ready after this long (0 = never)\n")
	fmt.Fprintf(&b, "  expires_after_ms: %d\n", d.Simulator.ExpiresAfterMs)
	b.WriteString("  # Presentations dismiss themselves after this long (0 = never)\n")
	fmt.Fprintf(&b, "  auto_dismiss_ms: %d\n", d.Simulator.AutoDismissMs)
	b.WriteString("  # Random seed (0 = seeded from the clock)\n")
	fmt.Fprintf(&b, "  seed: %d\n\n", d.Simulator.Seed)

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  enabled: %v\n", d.Logging.Enabled)
	fmt.Fprintf(&b, "  # Options: %s\n", strings.Join(config.ValidLogLevels(), ", "))
	fmt.Fprintf(&b, "  level: %s\n", d.Logging.Level)
	b.WriteString("  # Log directory (empty = <config dir>/logs)\n")
	b.WriteString("  dir: \"\"\n\n")

	b.WriteString("telemetry:\n")
	fmt.Fprintf(&b, "  enabled: %v\n", d.Telemetry.Enabled)
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(generated)"
	}
	return s
}
