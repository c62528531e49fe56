package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario.yaml...]",
	Short: "Run lifecycle scenarios",
	Long: `Run scripted lifecycle scenarios against a fresh ad unit each.

Scenario files are YAML documents listing steps such as load, wait_ready,
show, dismiss and expect_events. Without arguments every bundled scenario
is run; use --builtin to pick bundled scenarios by name.`,
	RunE: runScenarios,
}

var (
	runBuiltins []string // Bundled scenarios to run
	runList     bool     // List bundled scenarios and exit
	runVerbose  bool     // Print every delivered notification
)

func init() {
	runCmd.Flags().StringSliceVarP(&runBuiltins, "builtin", "b", nil, "bundled scenario to run (repeatable)")
	runCmd.Flags().BoolVar(&runList, "list", false, "list bundled scenarios")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print delivered notifications")
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if runList {
		for _, name := range scenario.BuiltinNames() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	scenarios, err := collectScenarios(args, runBuiltins)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	tel, err := newTelemetry(cfg)
	if err != nil {
		return err
	}
	defer tel.shutdown()

	runner := scenario.NewRunner(cfg,
		scenario.WithLogger(logger),
		scenario.WithMetrics(tel.metrics),
	)

	failed := 0
	for _, sc := range scenarios {
		start := time.Now()
		result, err := runner.Run(cmd.Context(), sc)
		if err != nil {
			failed++
			fmt.Fprintf(out, "ERROR %s: %v\n", sc.Name, err)
			continue
		}
		printResult(out, result, time.Since(start))
		if !result.Passed() {
			failed++
		}
	}

	if err := tel.report(cmd.Context(), out); err != nil {
		logger.Warn("failed to report metrics", "error", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}

// collectScenarios resolves file arguments and --builtin names. With
// neither, every bundled scenario is returned.
func collectScenarios(paths, builtins []string) ([]*scenario.Scenario, error) {
	if len(paths) == 0 && len(builtins) == 0 {
		builtins = scenario.BuiltinNames()
	}

	scenarios := make([]*scenario.Scenario, 0, len(paths)+len(builtins))
	for _, name := range builtins {
		sc, err := scenario.Builtin(name)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(scenario.BuiltinNames(), ", "))
		}
		scenarios = append(scenarios, sc)
	}
	for _, path := range paths {
		sc, err := scenario.LoadFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func printResult(w io.Writer, result *scenario.Result, elapsed time.Duration) {
	status := "PASS"
	if !result.Passed() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%d steps, %s)\n", status, result.Name, len(result.Steps), elapsed.Round(time.Millisecond))
	if err := result.Err(); err != nil {
		fmt.Fprintf(w, "     %v\n", err)
	}

	if runVerbose {
		for _, e := range result.Events {
			line := "     - " + e.Type
			if e.Err != nil {
				line += ": " + e.Err.Error()
				if errors.IsRetryable(e.Err) {
					line += " (retryable)"
				}
			}
			fmt.Fprintln(w, line)
		}
		s := result.Stats
		fmt.Fprintf(w, "     requests=%d fills=%d failures=%d presentations=%d dismissals=%d\n",
			s.Requests, s.Fills, s.Failures, s.Presentations, s.Dismissals)
	}
}
