package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
)

// CreateLogger builds the logger described by cfg. Logging problems never
// stop a command; they fall back to a no-op logger.
func CreateLogger(cfg *config.Config) *logging.Logger {
	// Check if logging is enabled
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLogger(cfg.Logging.ResolveDir(), cfg.Logging.Level)
	if err != nil {
		// Log creation failure shouldn't prevent the application from starting
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// telemetryStack is the metrics pipeline for one command invocation.
// Both fields are nil when telemetry is disabled.
type telemetryStack struct {
	provider *telemetry.Provider
	metrics  *telemetry.LifecycleMetrics
}

func newTelemetry(cfg *config.Config) (*telemetryStack, error) {
	if !cfg.Telemetry.Enabled {
		return &telemetryStack{}, nil
	}
	provider := telemetry.NewProvider()
	metrics, err := telemetry.NewLifecycleMetrics(provider.MeterProvider())
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create lifecycle metrics: %w", err)
	}
	return &telemetryStack{provider: provider, metrics: metrics}, nil
}

// report writes the collected counters to w.
func (t *telemetryStack) report(ctx context.Context, w io.Writer) error {
	if t.provider == nil {
		return nil
	}
	totals, err := t.provider.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}
	if len(totals) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Metrics:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range totals {
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", c.Name, c.Attributes, c.Value)
	}
	return tw.Flush()
}

func (t *telemetryStack) shutdown() {
	if t.provider != nil {
		_ = t.provider.Shutdown(context.Background())
	}
}

// loadConfig reads and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
