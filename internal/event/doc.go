// Package event provides the lifecycle event catalogue and a pub-sub bus
// for observability taps.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [LifecycleEvent]: The single concrete event shape, tagged with unit and load cycle IDs
//   - [Bus]: Synchronous pub-sub dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Load outcomes:
//   - ad.received: a load cycle produced a presentable creative
//   - ad.failed: a load cycle failed; the error is carried verbatim
//
// Presentation:
//   - ad.will_present: Show accepted the request and is about to present
//   - ad.did_dismiss: the presentation ended
//
// Interaction:
//   - ad.did_click, ad.will_leave_app
//   - ad.impression, ad.displayed, ad.completed
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publisher's goroutine; the dispatcher publishes from
// the UI execution context, so bus handlers observe the same ordering the
// observer does.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeAdFailed, func(e event.Event) {
//	    failed := e.(event.LifecycleEvent)
//	    log.Printf("load failed: %v", failed.Err)
//	})
package event
