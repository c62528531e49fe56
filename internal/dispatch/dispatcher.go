// Package dispatch delivers ad lifecycle outcomes to a registered observer
// on the UI execution context, regardless of which goroutine produced them.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/gammazero/deque"

	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// Observer receives lifecycle outcomes of an ad unit. Every method is
// called on the UI execution context.
type Observer interface {
	OnAdReceived()
	OnAdFailed(err error)
	OnWillPresentAd()
	OnDidDismissAd()
	OnDidClickAd()
	OnWillLeaveApplication()
}

// InteractionObserver is an optional extension of Observer for creative
// progress events. Observers that do not implement it simply miss them.
type InteractionObserver interface {
	OnAdImpression()
	OnAdDisplayed()
	OnAdCompleted()
}

// Dispatcher marshals notifications onto a Scheduler and routes them to the
// observer registered at delivery time.
//
// The Dispatcher is a thin layer that:
//   - Never blocks the notifying goroutine
//   - Delivers notifications in the order Notify was called, including
//     those delivered inline by Flush
//   - Resolves the observer when the notification runs, not when it is queued
//   - Drops notifications when no observer is registered
//   - Publishes every notification to an optional event bus
//   - Recovers observer panics so the UI queue keeps running
type Dispatcher struct {
	scheduler uiqueue.Scheduler
	bus       *event.Bus
	metrics   *telemetry.LifecycleMetrics
	logger    *logging.Logger

	mu       sync.RWMutex
	observer Observer

	pendingMu sync.Mutex
	pending   deque.Deque[event.LifecycleEvent]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBus publishes every delivered notification to bus.
func WithBus(bus *event.Bus) Option {
	return func(d *Dispatcher) {
		d.bus = bus
	}
}

// WithMetrics records notification counts.
func WithMetrics(metrics *telemetry.LifecycleMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// New creates a Dispatcher delivering on scheduler.
func New(scheduler uiqueue.Scheduler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		scheduler: scheduler,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("dispatcher")
	return d
}

// SetObserver sets or replaces the observer. Passing nil unregisters it;
// notifications still queued at that point are dropped on delivery.
func (d *Dispatcher) SetObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer = o
}

// Observer returns the current observer, or nil.
func (d *Dispatcher) Observer() Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.observer
}

// Notify enqueues delivery of e on the UI execution context and returns
// immediately. Safe to call from any goroutine, including while the caller
// holds its own state lock: the order of Notify calls is the delivery order.
func (d *Dispatcher) Notify(e event.LifecycleEvent) {
	d.pendingMu.Lock()
	d.pending.PushBack(e)
	d.pendingMu.Unlock()

	d.scheduler.Post(func() { d.deliverNext() })
}

// Flush delivers every pending notification before returning when called
// on the UI execution context. Off the context it does nothing and returns
// false; the posted deliveries run later in the same order.
func (d *Dispatcher) Flush() bool {
	if !d.scheduler.IsCurrent() {
		return false
	}
	for d.deliverNext() {
	}
	return true
}

// deliverNext delivers the oldest pending notification. Each Notify posts
// one deliverNext; those finding the queue already drained by Flush are
// no-ops.
func (d *Dispatcher) deliverNext() bool {
	d.pendingMu.Lock()
	if d.pending.Len() == 0 {
		d.pendingMu.Unlock()
		return false
	}
	e := d.pending.PopFront()
	d.pendingMu.Unlock()

	d.deliver(e)
	return true
}

func (d *Dispatcher) deliver(e event.LifecycleEvent) {
	if d.bus != nil {
		d.bus.Publish(e)
	}

	o := d.Observer()
	if o == nil {
		d.logger.Debug("notification dropped, no observer",
			"event_type", e.EventType(),
			"cycle_id", e.CycleID,
		)
		d.metrics.RecordNotification(context.Background(), e.EventType(), false)
		return
	}

	d.logger.Debug("delivering notification",
		"event_type", e.EventType(),
		"cycle_id", e.CycleID,
	)
	d.safeCall(e, func() { route(o, e) })
	d.metrics.RecordNotification(context.Background(), e.EventType(), true)
}

// route maps a lifecycle event to the matching observer method.
func route(o Observer, e event.LifecycleEvent) {
	switch e.EventType() {
	case event.TypeAdReceived:
		o.OnAdReceived()
	case event.TypeAdFailed:
		o.OnAdFailed(e.Err)
	case event.TypeWillPresent:
		o.OnWillPresentAd()
	case event.TypeDidDismiss:
		o.OnDidDismissAd()
	case event.TypeDidClick:
		o.OnDidClickAd()
	case event.TypeWillLeaveApp:
		o.OnWillLeaveApplication()
	case event.TypeImpression, event.TypeDisplayed, event.TypeCompleted:
		io, ok := o.(InteractionObserver)
		if !ok {
			return
		}
		switch e.EventType() {
		case event.TypeImpression:
			io.OnAdImpression()
		case event.TypeDisplayed:
			io.OnAdDisplayed()
		case event.TypeCompleted:
			io.OnAdCompleted()
		}
	}
}

func (d *Dispatcher) safeCall(e event.LifecycleEvent, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer panicked",
				"event_type", e.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
