package interstitial

import (
	"context"

	"github.com/google/uuid"
)

// ShowAction begins presenting a prepared creative on host. It is invoked at
// most once, on the UI execution context.
type ShowAction func(host *Host)

// ReadyPredicate reports whether a loaded creative can still be shown. It
// must be fast and must not call back into the Unit.
type ReadyPredicate func() bool

// Host is the UI context that hosts modally presented content. A Unit never
// keeps a Host alive; see Unit.PresentationHost.
type Host struct {
	ID   string
	Name string
}

// NewHost creates a Host with a fresh ID.
func NewHost(name string) *Host {
	return &Host{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// LoadListener receives the outcome of a load cycle. Exactly one of the
// methods is called per Refresh, from any goroutine.
type LoadListener interface {
	OnLoaded(action ShowAction, predicate ReadyPredicate)
	OnFailed(err error)
}

// InteractionReporter receives events from a creative once it is being
// presented. Each method may be called zero or more times, from any
// goroutine; OnDidDismiss ends a presentation.
type InteractionReporter interface {
	OnImpression()
	OnClick()
	OnWillLeaveApp()
	OnDisplay()
	OnComplete()
	OnWillPresent()
	OnDidDismiss()
}

// LoadCoordinator performs ad retrieval and creative preparation.
type LoadCoordinator interface {
	// Bind registers where results and interaction events are reported.
	// The Unit calls it once, from New.
	Bind(listener LoadListener, reporter InteractionReporter)

	// Refresh starts a load cycle and returns without waiting for it.
	Refresh(ctx context.Context)
}
