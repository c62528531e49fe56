package scenario

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
	"github.com/OlenaTeqBlaze/adunit/internal/dispatch"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/simulator"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

const defaultWaitTimeout = 2 * time.Second

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int
	Action  string
	Err     error
	Elapsed time.Duration
}

// Result is the outcome of a scenario run.
type Result struct {
	Name  string
	Steps []StepResult
	// Events holds every observer notification in delivery order.
	Events []dispatch.Record
	Stats  simulator.Stats
}

// Err returns the first failed step as an error, or nil.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return errors.Wrapf(s.Err, "step %d (%s)", s.Index+1, s.Action)
		}
	}
	return nil
}

// Passed reports whether every step succeeded.
func (r *Result) Passed() bool {
	return r.Err() == nil
}

// Runner executes scenarios against fresh units.
type Runner struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *telemetry.LifecycleMetrics
	bus     *event.Bus
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger passed to every unit and coordinator.
func WithLogger(logger *logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records lifecycle metrics for every run.
func WithMetrics(metrics *telemetry.LifecycleMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = metrics }
}

// WithBus publishes every run's notifications to bus.
func WithBus(bus *event.Bus) RunnerOption {
	return func(r *Runner) { r.bus = bus }
}

// NewRunner creates a Runner. cfg supplies the unit and simulator settings;
// nil uses config.Default().
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the state of one scenario execution.
type run struct {
	loop  *uiqueue.Loop
	coord *simulator.Coordinator
	unit  *interstitial.Unit
	rec   *dispatch.Recorder
	hosts map[string]*interstitial.Host
}

// Run executes sc step by step and stops at the first failing step. The
// returned error is for setup failures; step failures are in the Result.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	logger := r.logger.With("scenario", sc.Name)

	loop := uiqueue.NewLoop(logger)
	loop.Start()
	defer loop.Stop()

	coord := simulator.New(sc.Simulator.Apply(r.cfg.Simulator), simulator.WithLogger(logger))
	defer coord.Close()

	rec := dispatch.NewRecorder(loop)
	opts := []interstitial.Option{
		interstitial.WithLogger(logger),
		interstitial.WithMetrics(r.metrics),
		interstitial.WithObserver(rec),
		interstitial.WithStrictThreading(r.cfg.Unit.StrictThreading),
	}
	if r.cfg.Unit.ID != "" {
		opts = append(opts, interstitial.WithUnitID(r.cfg.Unit.ID))
	}
	if r.bus != nil {
		opts = append(opts, interstitial.WithBus(r.bus))
	}
	unit, err := interstitial.New(coord, loop, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create unit")
	}

	state := &run{
		loop:  loop,
		coord: coord,
		unit:  unit,
		rec:   rec,
		hosts: make(map[string]*interstitial.Host),
	}

	result := &Result{Name: sc.Name}
	logger.Info("scenario started", "steps", len(sc.Steps))
	for i, step := range sc.Steps {
		start := time.Now()
		err := state.exec(ctx, step)
		result.Steps = append(result.Steps, StepResult{
			Index:   i,
			Action:  step.Action,
			Err:     err,
			Elapsed: time.Since(start),
		})
		if err != nil {
			logger.Warn("scenario step failed", "step", i+1, "action", step.Action, "error", err)
			break
		}
	}

	// Let queued notifications land before reporting.
	if err := loop.Sync(func() {}); err != nil {
		logger.Warn("failed to flush UI loop", "error", err)
	}
	result.Events = rec.Records()
	result.Stats = coord.Stats()

	for _, e := range result.Events {
		if !e.OnUIContext {
			return result, fmt.Errorf("notification %s delivered off the UI execution context", e.Type)
		}
	}
	logger.Info("scenario finished", "passed", result.Passed())
	return result, nil
}

func (s *run) exec(ctx context.Context, step Step) error {
	timeout := defaultWaitTimeout
	if step.TimeoutMs > 0 {
		timeout = time.Duration(step.TimeoutMs) * time.Millisecond
	}

	switch step.Action {
	case ActionLoad:
		s.unit.LoadAd(ctx)

	case ActionWaitReady:
		if !poll(ctx, timeout, s.unit.IsReady) {
			return errors.Wrapf(errors.ErrNotReady, "no ready ad within %s", timeout)
		}

	case ActionWaitEvent:
		if !s.rec.WaitFor(step.Event, timeout) {
			return fmt.Errorf("%s not delivered within %s", step.Event, timeout)
		}

	case ActionShow:
		host, ok := s.hosts[step.host()]
		if !ok {
			host = interstitial.NewHost(step.host())
			s.hosts[step.host()] = host
		}
		var showErr error
		if err := s.loop.Sync(func() { showErr = s.unit.Show(host) }); err != nil {
			return err
		}
		return showErr

	case ActionClick:
		if !s.coord.Click() {
			s.unit.OnClick()
		}

	case ActionLeaveApp:
		if !s.coord.LeaveApp() {
			s.unit.OnClick()
			s.unit.OnWillLeaveApp()
		}

	case ActionDismiss:
		// With nothing on screen, forward a stray dismiss straight to the
		// unit the way a misbehaving network would.
		if !s.coord.Dismiss() {
			s.unit.OnDidDismiss()
		}

	case ActionReleaseHost:
		delete(s.hosts, step.host())
		runtime.GC()

	case ActionExpectReady:
		if got := s.unit.IsReady(); got != step.want() {
			return fmt.Errorf("IsReady() = %v, want %v", got, step.want())
		}

	case ActionExpectPhase:
		if got := s.unit.Phase().String(); got != step.Phase {
			return fmt.Errorf("phase = %s, want %s", got, step.Phase)
		}

	case ActionExpectHost:
		want := step.want()
		resolved := poll(ctx, timeout, func() bool {
			runtime.GC()
			return (s.unit.PresentationHost() != nil) == want
		})
		if !resolved {
			return fmt.Errorf("presentation host present = %v, want %v", !want, want)
		}

	case ActionExpectEvents:
		if err := s.loop.Sync(func() {}); err != nil {
			return err
		}
		if got := s.rec.Types(); !slices.Equal(got, step.Events) {
			return fmt.Errorf("events = %v, want %v", got, step.Events)
		}

	case ActionExpectCount:
		if err := s.loop.Sync(func() {}); err != nil {
			return err
		}
		if got := s.rec.Count(step.Event); got != step.Count {
			return fmt.Errorf("%s delivered %d times, want %d", step.Event, got, step.Count)
		}

	case ActionSleep:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step.DurationMs) * time.Millisecond):
		}

	default:
		return errors.NewValidationError("unknown action").WithValue(step.Action)
	}
	return nil
}

// poll checks cond until it holds, timeout elapses or ctx is done.
func poll(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return cond()
		case <-ticker.C:
		}
	}
}
