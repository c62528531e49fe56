// Package event defines the lifecycle events an ad unit emits toward its
// observer and any bus subscribers.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "ad.received", "ad.did_dismiss")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeAdReceived   = "ad.received"
	TypeAdFailed     = "ad.failed"
	TypeWillPresent  = "ad.will_present"
	TypeDidDismiss   = "ad.did_dismiss"
	TypeDidClick     = "ad.did_click"
	TypeWillLeaveApp = "ad.will_leave_app"
	TypeImpression   = "ad.impression"
	TypeDisplayed    = "ad.displayed"
	TypeCompleted    = "ad.completed"
)

// AllTypes returns every lifecycle event type in emission order of a
// typical cycle.
func AllTypes() []string {
	return []string{
		TypeAdReceived, TypeAdFailed, TypeWillPresent, TypeImpression,
		TypeDisplayed, TypeDidClick, TypeWillLeaveApp, TypeCompleted,
		TypeDidDismiss,
	}
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// LifecycleEvent is emitted for every outcome of an ad unit. Err is only set
// for ad.failed.
type LifecycleEvent struct {
	baseEvent
	UnitID  string // Ad unit that produced the event
	CycleID string // Load cycle the event belongs to, if known
	Err     error  // Load failure, verbatim from the load coordinator
}

// IsFailure reports whether the event carries a load failure.
func (e LifecycleEvent) IsFailure() bool {
	return e.eventType == TypeAdFailed
}

func newLifecycleEvent(eventType, unitID, cycleID string) LifecycleEvent {
	return LifecycleEvent{
		baseEvent: newBaseEvent(eventType),
		UnitID:    unitID,
		CycleID:   cycleID,
	}
}

// NewAdReceivedEvent creates an ad.received event.
func NewAdReceivedEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeAdReceived, unitID, cycleID)
}

// NewAdFailedEvent creates an ad.failed event carrying err.
func NewAdFailedEvent(unitID, cycleID string, err error) LifecycleEvent {
	e := newLifecycleEvent(TypeAdFailed, unitID, cycleID)
	e.Err = err
	return e
}

// NewWillPresentEvent creates an ad.will_present event.
func NewWillPresentEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeWillPresent, unitID, cycleID)
}

// NewDidDismissEvent creates an ad.did_dismiss event.
func NewDidDismissEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeDidDismiss, unitID, cycleID)
}

// NewDidClickEvent creates an ad.did_click event.
func NewDidClickEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeDidClick, unitID, cycleID)
}

// NewWillLeaveAppEvent creates an ad.will_leave_app event.
func NewWillLeaveAppEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeWillLeaveApp, unitID, cycleID)
}

// NewImpressionEvent creates an ad.impression event.
func NewImpressionEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeImpression, unitID, cycleID)
}

// NewDisplayedEvent creates an ad.displayed event.
func NewDisplayedEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeDisplayed, unitID, cycleID)
}

// NewCompletedEvent creates an ad.completed event.
func NewCompletedEvent(unitID, cycleID string) LifecycleEvent {
	return newLifecycleEvent(TypeCompleted, unitID, cycleID)
}
