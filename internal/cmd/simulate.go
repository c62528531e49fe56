package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/simulator"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
	"github.com/OlenaTeqBlaze/adunit/internal/tui"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive an ad unit against the simulated network",
	Long: `Drive an ad unit against the simulated ad network.

On a terminal this opens an interactive view: press l to load, s to show,
c to click, x to leave the app, d to dismiss, r to release the host and
q to quit. With --headless, or when stdout is not a terminal, it runs a
fixed number of load/show/dismiss cycles and prints every notification.`,
	RunE: runSimulate,
}

var (
	simulateHeadless bool // Skip the interactive view
	simulateCycles   int  // Cycles to run headless
	simulateShowFor  time.Duration
)

func init() {
	simulateCmd.Flags().BoolVar(&simulateHeadless, "headless", false, "run without the interactive view")
	simulateCmd.Flags().IntVarP(&simulateCycles, "cycles", "n", 3, "load/show/dismiss cycles to run headless")
	simulateCmd.Flags().DurationVar(&simulateShowFor, "show-for", 250*time.Millisecond, "how long a headless presentation stays on screen")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
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

	if simulateHeadless || !term.IsTerminal(int(os.Stdout.Fd())) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sim := headless{
			cfg:     cfg,
			logger:  logger,
			metrics: tel.metrics,
			cycles:  simulateCycles,
			showFor: simulateShowFor,
			out:     cmd.OutOrStdout(),
		}
		if err := sim.run(ctx); err != nil {
			return err
		}
		return tel.report(context.Background(), cmd.OutOrStdout())
	}

	return runInteractive(cmd.Context(), cfg, logger, tel.metrics)
}

func unitOptions(cfg *config.Config, logger *logging.Logger, metrics *telemetry.LifecycleMetrics, bus *event.Bus) []interstitial.Option {
	opts := []interstitial.Option{
		interstitial.WithLogger(logger),
		interstitial.WithMetrics(metrics),
		interstitial.WithBus(bus),
		interstitial.WithStrictThreading(cfg.Unit.StrictThreading),
	}
	if cfg.Unit.ID != "" {
		opts = append(opts, interstitial.WithUnitID(cfg.Unit.ID))
	}
	return opts
}

func runInteractive(ctx context.Context, cfg *config.Config, logger *logging.Logger, metrics *telemetry.LifecycleMetrics) error {
	sched := tui.NewScheduler(logger)
	coord := simulator.New(cfg.Simulator, simulator.WithLogger(logger))
	defer coord.Close()

	bus := event.NewBus(logger)
	unit, err := interstitial.New(coord, sched, unitOptions(cfg, logger, metrics, bus)...)
	if err != nil {
		return fmt.Errorf("failed to create ad unit: %w", err)
	}

	app := tui.New(ctx, unit, coord, sched, bus)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// headless runs load/show/dismiss cycles on a uiqueue.Loop and prints
// every notification as it is delivered.
type headless struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *telemetry.LifecycleMetrics
	cycles  int
	showFor time.Duration
	out     io.Writer
}

func (h headless) run(ctx context.Context) error {
	loop := uiqueue.NewLoop(h.logger)
	loop.Start()
	defer loop.Stop()

	coord := simulator.New(h.cfg.Simulator, simulator.WithLogger(h.logger))
	defer coord.Close()

	// Handlers run on the loop goroutine, the only writer of h.out until
	// the loop is flushed below.
	bus := event.NewBus(h.logger)
	bus.SubscribeAll(func(e event.Event) {
		le, ok := e.(event.LifecycleEvent)
		if !ok {
			return
		}
		line := fmt.Sprintf("%s  %-18s cycle=%s", le.Timestamp().Format("15:04:05.000"), le.EventType(), shortID(le.CycleID))
		if le.Err != nil {
			line += "  error=" + le.Err.Error()
		}
		fmt.Fprintln(h.out, line)
	})

	unit, err := interstitial.New(coord, loop, unitOptions(h.cfg, h.logger, h.metrics, bus)...)
	if err != nil {
		return fmt.Errorf("failed to create ad unit: %w", err)
	}

	host := interstitial.NewHost("headless")
	loadTimeout := h.cfg.Simulator.LoadLatency() + h.cfg.Simulator.LatencyJitter() + time.Second

	for i := 0; i < h.cycles; i++ {
		if ctx.Err() != nil {
			break
		}

		unit.LoadAd(ctx)
		if !waitUntil(ctx, loadTimeout, func() bool { return unit.Phase() != interstitial.PhaseLoading }) {
			return errors.Wrapf(errors.ErrLoadTimeout, "cycle %d: no load result within %s", i+1, loadTimeout)
		}
		if !unit.IsReady() {
			continue
		}

		var showErr error
		if err := loop.Sync(func() { showErr = unit.Show(host) }); err != nil {
			return err
		}
		if showErr != nil {
			return showErr
		}

		if h.cfg.Simulator.AutoDismissMs == 0 {
			sleep(ctx, h.showFor)
			coord.Dismiss()
		}
		waitUntil(ctx, h.showFor+h.cfg.Simulator.AutoDismiss()+time.Second, func() bool {
			return unit.Phase() != interstitial.PhaseShowing
		})
	}

	if err := loop.Sync(func() {}); err != nil {
		h.logger.Warn("failed to flush UI loop", "error", err)
	}
	// Late timers must not write past the summary.
	bus.Clear()

	s := coord.Stats()
	fmt.Fprintf(h.out, "\nrequests=%d fills=%d failures=%d presentations=%d dismissals=%d\n",
		s.Requests, s.Fills, s.Failures, s.Presentations, s.Dismissals)
	return nil
}

func waitUntil(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		sleep(ctx, 5*time.Millisecond)
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
