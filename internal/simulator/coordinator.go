// Package simulator provides a LoadCoordinator that fakes an ad network.
// Requests complete after a configurable latency on worker goroutines and
// are filled with a configurable probability, which makes it useful for
// exercising an interstitial.Unit from the CLI, the TUI and scenarios.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
)

// Stats counts what the coordinator has done so far.
type Stats struct {
	Requests      int
	Fills         int
	Failures      int
	Presentations int
	Dismissals    int
}

// Coordinator is a simulated interstitial.LoadCoordinator.
type Coordinator struct {
	cfg    config.SimulatorConfig
	logger *logging.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	listener interstitial.LoadListener
	reporter interstitial.InteractionReporter
	showing  *Creative
	stats    Stats
	closed   bool

	done     chan struct{}
	inflight conc.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Coordinator from simulator settings.
func New(cfg config.SimulatorConfig, opts ...Option) *Coordinator {
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	c := &Coordinator{
		cfg:    cfg,
		logger: logging.NopLogger(),
		rng:    rand.New(rand.NewPCG(seed, seed>>1)),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("simulator")
	return c
}

// Bind implements interstitial.LoadCoordinator.
func (c *Coordinator) Bind(listener interstitial.LoadListener, reporter interstitial.InteractionReporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
	c.reporter = reporter
}

// Refresh implements interstitial.LoadCoordinator. The request completes on
// its own goroutine after the configured latency. Requests still pending at
// Close are abandoned without a result.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warn("refresh after close ignored")
		return
	}
	if c.listener == nil {
		c.mu.Unlock()
		c.logger.Warn("refresh before bind ignored")
		return
	}
	c.stats.Requests++
	request := c.stats.Requests
	latency := c.latencyLocked()
	filled := c.rng.Float64() < c.cfg.FillRate
	listener := c.listener
	defer c.mu.Unlock()

	c.logger.Debug("ad request started",
		"request", request,
		"latency", latency.String(),
		"filled", filled,
	)

	// Spawned under c.mu so Close cannot start waiting in between.
	c.inflight.Go(func() {
		timer := time.NewTimer(latency)
		defer timer.Stop()

		select {
		case <-c.done:
			c.logger.Debug("ad request abandoned", "request", request)
			return
		case <-ctx.Done():
			// A deadline may pass on the next attempt; an explicit cancel will not.
			err := errors.NewLoadError(fmt.Sprintf("request %d canceled", request), ctx.Err()).
				WithRetryable(errors.Is(ctx.Err(), context.DeadlineExceeded))
			c.fail(listener, request, err)
			return
		case <-timer.C:
		}

		if !filled {
			c.fail(listener, request, errors.NewLoadError(fmt.Sprintf("request %d not filled", request), c.failureCause()))
			return
		}

		creative := &Creative{
			ID:           uuid.NewString(),
			coordinator:  c,
			loadedAt:     time.Now(),
			expiresAfter: c.cfg.ExpiresAfter(),
		}
		c.mu.Lock()
		c.stats.Fills++
		c.mu.Unlock()
		c.logger.Info("ad request filled", "request", request, "creative", creative.ID)
		listener.OnLoaded(creative.Show, creative.IsReady)
	})
}

// fail reports err for request. The simulated network only knows its own
// request numbers, so those stand in for the cycle.
func (c *Coordinator) fail(listener interstitial.LoadListener, request int, err *errors.LoadError) {
	err = err.WithCycle(requestID(request))
	c.mu.Lock()
	c.stats.Failures++
	c.mu.Unlock()
	c.logger.Info("ad request failed", "error", err, "retryable", errors.IsRetryable(err))
	listener.OnFailed(err)
}

func requestID(request int) string {
	return fmt.Sprintf("req-%d", request)
}

// latencyLocked must be called with c.mu held.
func (c *Coordinator) latencyLocked() time.Duration {
	latency := c.cfg.LoadLatency()
	if jitter := c.cfg.LatencyJitter(); jitter > 0 {
		latency += time.Duration(c.rng.Int64N(int64(jitter) + 1))
	}
	return latency
}

func (c *Coordinator) failureCause() error {
	switch c.cfg.FailureKind {
	case "timeout":
		return errors.ErrLoadTimeout
	case "network":
		return errors.ErrNetwork
	default:
		return errors.ErrNoFill
	}
}

// Click simulates the user tapping the presented creative.
func (c *Coordinator) Click() bool {
	reporter, ok := c.presenting()
	if ok {
		reporter.OnClick()
	}
	return ok
}

// LeaveApp simulates a click-through that leaves the application.
func (c *Coordinator) LeaveApp() bool {
	reporter, ok := c.presenting()
	if ok {
		reporter.OnClick()
		reporter.OnWillLeaveApp()
	}
	return ok
}

// Dismiss closes the presented creative. It returns false when nothing is
// being presented.
func (c *Coordinator) Dismiss() bool {
	return c.dismissIf(nil)
}

// dismissIf closes the presented creative if it is cr, or whatever is
// presented when cr is nil. The check and the clear share one critical
// section, so a stale timer cannot close a newer creative.
func (c *Coordinator) dismissIf(cr *Creative) bool {
	c.mu.Lock()
	creative := c.showing
	reporter := c.reporter
	if creative == nil || reporter == nil || (cr != nil && creative != cr) {
		c.mu.Unlock()
		return false
	}
	c.showing = nil
	c.stats.Dismissals++
	c.mu.Unlock()

	c.logger.Debug("creative dismissed", "creative", creative.ID)
	reporter.OnComplete()
	reporter.OnDidDismiss()
	return true
}

// Presenting reports whether a creative is on screen.
func (c *Coordinator) Presenting() bool {
	_, ok := c.presenting()
	return ok
}

func (c *Coordinator) presenting() (interstitial.InteractionReporter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.showing == nil || c.reporter == nil {
		return nil, false
	}
	return c.reporter, true
}

// Stats returns a copy of the coordinator's counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close abandons pending requests and auto-dismiss timers and waits for
// their goroutines to exit. Refresh is ignored afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.inflight.Wait()
}

// Creative is a filled simulated ad.
type Creative struct {
	ID string

	coordinator  *Coordinator
	loadedAt     time.Time
	expiresAfter time.Duration
}

// IsReady reports whether the creative has not expired yet.
func (cr *Creative) IsReady() bool {
	return cr.expiresAfter <= 0 || time.Since(cr.loadedAt) < cr.expiresAfter
}

// Show presents the creative. It reports the presentation to the bound
// reporter and schedules the auto-dismiss when configured. host is only
// logged, never retained.
func (cr *Creative) Show(host *interstitial.Host) {
	c := cr.coordinator

	c.mu.Lock()
	reporter := c.reporter
	c.showing = cr
	c.stats.Presentations++
	c.mu.Unlock()

	if host != nil {
		c.logger.Info("creative presented", "creative", cr.ID, "host", host.Name)
	} else {
		c.logger.Warn("creative presented without a host", "creative", cr.ID, "error", errors.ErrHostUnavailable)
	}

	if reporter == nil {
		return
	}
	reporter.OnWillPresent()
	reporter.OnImpression()
	reporter.OnDisplay()

	delay := c.cfg.AutoDismiss()
	if delay <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.showing != cr {
		return
	}
	c.inflight.Go(func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-c.done:
		case <-timer.C:
			c.dismissIf(cr)
		}
	})
}

var _ interstitial.LoadCoordinator = (*Coordinator)(nil)
