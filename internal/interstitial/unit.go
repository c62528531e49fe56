package interstitial

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"

	"github.com/OlenaTeqBlaze/adunit/internal/dispatch"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// Unit is a single interstitial ad placement. It drives one creative at a
// time through load, ready, show and dismiss, and reports every outcome to
// its observer on the UI execution context.
//
// All methods are safe to call from any goroutine, except Show which must
// run on the UI execution context. The state lock is held only while a
// transition is decided. Notifications are queued under it, so observers
// see them in transition order, but observers, show actions and ready
// predicates are always called with the lock released.
type Unit struct {
	id          string
	coordinator LoadCoordinator
	scheduler   uiqueue.Scheduler
	dispatcher  *dispatch.Dispatcher
	metrics     *telemetry.LifecycleMetrics
	logger      *logging.Logger
	strict      bool

	mu    sync.Mutex
	state state
	host  weak.Pointer[Host]

	// Attribution for the next load result. Cleared when a result arrives.
	pendingCycle string
	loadStarted  time.Time
}

// Option configures a Unit.
type Option func(*config)

type config struct {
	id       string
	logger   *logging.Logger
	metrics  *telemetry.LifecycleMetrics
	bus      *event.Bus
	observer dispatch.Observer
	strict   bool
}

// WithUnitID sets the unit ID. A random ID is generated otherwise.
func WithUnitID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics records transitions, ignored shows and load latency.
func WithMetrics(metrics *telemetry.LifecycleMetrics) Option {
	return func(c *config) { c.metrics = metrics }
}

// WithBus publishes every outcome to bus as well as the observer.
func WithBus(bus *event.Bus) Option {
	return func(c *config) { c.bus = bus }
}

// WithObserver registers the initial observer.
func WithObserver(o dispatch.Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithStrictThreading makes Show panic when called off the UI execution
// context instead of returning an error.
func WithStrictThreading(strict bool) Option {
	return func(c *config) { c.strict = strict }
}

// New creates an idle Unit and binds it to coordinator as both load
// listener and interaction reporter.
func New(coordinator LoadCoordinator, scheduler uiqueue.Scheduler, opts ...Option) (*Unit, error) {
	if coordinator == nil {
		return nil, errors.NewValidationError("load coordinator is required").WithField("coordinator")
	}
	if scheduler == nil {
		return nil, errors.NewValidationError("scheduler is required").WithField("scheduler")
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.logger == nil {
		cfg.logger = logging.NopLogger()
	}

	logger := cfg.logger.WithUnit(cfg.id)
	u := &Unit{
		id:          cfg.id,
		coordinator: coordinator,
		scheduler:   scheduler,
		metrics:     cfg.metrics,
		logger:      logger.WithComponent("interstitial"),
		strict:      cfg.strict,
		state:       idleState{},
		dispatcher: dispatch.New(scheduler,
			dispatch.WithLogger(logger),
			dispatch.WithBus(cfg.bus),
			dispatch.WithMetrics(cfg.metrics),
		),
	}
	if cfg.observer != nil {
		u.dispatcher.SetObserver(cfg.observer)
	}

	coordinator.Bind(u, u)
	return u, nil
}

// ID returns the unit ID.
func (u *Unit) ID() string {
	return u.id
}

// SetObserver sets or replaces the observer. Passing nil unregisters it.
func (u *Unit) SetObserver(o dispatch.Observer) {
	u.dispatcher.SetObserver(o)
}

// Observer returns the current observer, or nil.
func (u *Unit) Observer() dispatch.Observer {
	return u.dispatcher.Observer()
}

// Phase returns the current lifecycle phase.
func (u *Unit) Phase() Phase {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.phase()
}

// CycleID returns the ID of the load cycle the unit is currently in, or ""
// when idle.
func (u *Unit) CycleID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.cycle()
}

// LoadAd starts a new load cycle. The unit moves to Loading when idle; in
// any other phase the current state is kept and the result is handled when
// it arrives. The coordinator is always asked to refresh.
func (u *Unit) LoadAd(ctx context.Context) {
	cycle := uuid.NewString()

	u.mu.Lock()
	from := u.state.phase()
	switch u.state.(type) {
	case idleState, loadingState:
		u.state = loadingState{cycleID: cycle}
	}
	to := u.state.phase()
	u.pendingCycle = cycle
	u.loadStarted = time.Now()
	u.mu.Unlock()

	u.transitioned(ctx, from, to)
	u.logger.WithCycle(cycle).Info("load requested", "phase", to.String())

	u.coordinator.Refresh(ctx)
}

// Show presents the ready creative on host. It must be called on the UI
// execution context. When the unit is not Ready the call is ignored and
// nil is returned. The will-present notification is delivered before the
// show action runs.
func (u *Unit) Show(host *Host) error {
	if !u.scheduler.IsCurrent() {
		err := errors.NewPreconditionError("show", errors.ErrOffUIContext).WithPhase(u.Phase().String())
		u.logger.Error("show called off the UI execution context", "error", err)
		if u.strict {
			panic(err)
		}
		return err
	}

	u.mu.Lock()
	ready, ok := u.state.(readyState)
	if !ok {
		phase := u.state.phase()
		u.mu.Unlock()
		reason := errors.ErrNotReady
		if phase == PhaseShowing {
			reason = errors.ErrAlreadyShowing
		}
		u.logger.Debug("show ignored", "phase", phase.String(), "reason", reason)
		u.metrics.RecordIgnoredShow(context.Background(), u.id, phase.String())
		return nil
	}
	u.state = showingState{cycleID: ready.cycleID, startedAt: time.Now()}
	u.host = weak.Make(host)
	u.dispatcher.Notify(event.NewWillPresentEvent(u.id, ready.cycleID))
	u.mu.Unlock()

	u.transitioned(context.Background(), PhaseReady, PhaseShowing)
	logger := u.logger.WithCycle(ready.cycleID)
	if host != nil {
		logger.Info("presenting", "host", host.Name)
	} else {
		logger.Info("presenting without host")
	}

	// Anything queued before the transition is delivered first.
	u.dispatcher.Flush()
	ready.action(host)
	return nil
}

// IsReady reports whether Show would present a creative the ad network
// still considers valid. While Showing, a result queued behind the current
// presentation is consulted. A panicking predicate counts as not ready.
func (u *Unit) IsReady() bool {
	u.mu.Lock()
	var predicate ReadyPredicate
	switch s := u.state.(type) {
	case readyState:
		predicate = s.predicate
	case showingState:
		if s.next != nil {
			predicate = s.next.predicate
		}
	}
	u.mu.Unlock()

	if predicate == nil {
		return false
	}
	return u.evaluate(predicate)
}

func (u *Unit) evaluate(predicate ReadyPredicate) (ready bool) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("ready predicate panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			ready = false
		}
	}()
	return predicate()
}

// PresentationHost returns the host of the current or last presentation,
// or nil once that host has been released by its owner.
func (u *Unit) PresentationHost() *Host {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.host.Value()
}

// OnLoaded stores a prepared creative. The unit moves to Ready, unless a
// presentation is in progress, in which case the creative waits until it
// is dismissed. A nil action is reported as a failed load.
func (u *Unit) OnLoaded(action ShowAction, predicate ReadyPredicate) {
	if action == nil {
		u.failLoad(nil, errors.NewLoadError("load succeeded without a show action", errors.ErrInvalidLoadResult))
		return
	}
	if predicate == nil {
		predicate = func() bool { return true }
	}

	u.mu.Lock()
	cycle, started := u.takeCycle()
	from := u.state.phase()
	next := readyState{cycleID: cycle, action: action, predicate: predicate}
	if showing, ok := u.state.(showingState); ok {
		showing.next = &next
		u.state = showing
	} else {
		u.state = next
	}
	to := u.state.phase()
	u.dispatcher.Notify(event.NewAdReceivedEvent(u.id, cycle))
	u.mu.Unlock()

	ctx := context.Background()
	u.transitioned(ctx, from, to)
	if !started.IsZero() {
		u.metrics.RecordLoadDuration(ctx, u.id, time.Since(started), true)
	}
	u.logger.WithCycle(cycle).Info("ad received", "phase", to.String())
}

// OnFailed reports a failed load. A Loading unit returns to Idle; other
// phases are left untouched. err reaches the observer unchanged.
func (u *Unit) OnFailed(err error) {
	if err == nil {
		u.failLoad(nil, errors.NewLoadError("load failed without a reason", errors.ErrNoFill))
		return
	}
	u.failLoad(err, nil)
}

// failLoad ends the pending cycle with err. When err is nil, own is
// reported instead, stamped with this unit and the cycle it ends.
func (u *Unit) failLoad(err error, own *errors.LoadError) {
	u.mu.Lock()
	cycle, started := u.takeCycle()
	if err == nil {
		err = own.WithUnit(u.id).WithCycle(cycle)
	}
	from := u.state.phase()
	if _, ok := u.state.(loadingState); ok {
		u.state = idleState{}
	}
	to := u.state.phase()
	u.dispatcher.Notify(event.NewAdFailedEvent(u.id, cycle, err))
	u.mu.Unlock()

	ctx := context.Background()
	u.transitioned(ctx, from, to)
	if !started.IsZero() {
		u.metrics.RecordLoadDuration(ctx, u.id, time.Since(started), false)
	}
	u.logger.WithCycle(cycle).Warn("ad failed to load",
		"error", err,
		"severity", errors.GetSeverity(err).String(),
		"retryable", errors.IsRetryable(err),
		"phase", to.String(),
	)
}

// takeCycle returns the cycle a load result belongs to and when it was
// requested. Results arriving without a LoadAd get a fresh cycle ID.
// Must be called with u.mu held.
func (u *Unit) takeCycle() (string, time.Time) {
	cycle, started := u.pendingCycle, u.loadStarted
	u.pendingCycle, u.loadStarted = "", time.Time{}
	if cycle == "" {
		cycle = uuid.NewString()
	}
	return cycle, started
}

// OnDidDismiss ends the current presentation. The unit returns to Idle, or
// to Ready when a creative arrived during the presentation. Outside
// Showing the call is ignored.
func (u *Unit) OnDidDismiss() {
	u.mu.Lock()
	showing, ok := u.state.(showingState)
	if !ok {
		phase := u.state.phase()
		u.mu.Unlock()
		u.logger.Debug("dismiss ignored", "phase", phase.String())
		return
	}
	if showing.next != nil {
		u.state = *showing.next
	} else {
		u.state = idleState{}
	}
	u.host = weak.Pointer[Host]{}
	to := u.state.phase()
	u.dispatcher.Notify(event.NewDidDismissEvent(u.id, showing.cycleID))
	u.mu.Unlock()

	u.transitioned(context.Background(), PhaseShowing, to)
	u.logger.WithCycle(showing.cycleID).Info("presentation dismissed",
		"duration", time.Since(showing.startedAt).String(),
		"phase", to.String(),
	)
}

// OnWillPresent is logged only. The will-present notification is already
// sent by Show before the show action runs.
func (u *Unit) OnWillPresent() {
	u.logger.Debug("creative will present")
}

func (u *Unit) OnClick() {
	u.report(event.NewDidClickEvent)
}

func (u *Unit) OnWillLeaveApp() {
	u.report(event.NewWillLeaveAppEvent)
}

func (u *Unit) OnImpression() {
	u.report(event.NewImpressionEvent)
}

func (u *Unit) OnDisplay() {
	u.report(event.NewDisplayedEvent)
}

func (u *Unit) OnComplete() {
	u.report(event.NewCompletedEvent)
}

// report queues an interaction notification for the current cycle.
func (u *Unit) report(newEvent func(unitID, cycleID string) event.LifecycleEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dispatcher.Notify(newEvent(u.id, u.state.cycle()))
}

func (u *Unit) transitioned(ctx context.Context, from, to Phase) {
	if from == to {
		return
	}
	u.logger.Debug("phase changed", "from", from.String(), "to", to.String())
	u.metrics.RecordTransition(ctx, u.id, from.String(), to.String())
}

var (
	_ LoadListener        = (*Unit)(nil)
	_ InteractionReporter = (*Unit)(nil)
)
