// Package uiqueue provides the designated UI execution context that lifecycle
// notifications are marshaled onto.
//
// A [Scheduler] runs posted closures one at a time, in FIFO order, on a
// single goroutine. [Post] never blocks the caller: tasks are appended to an
// unbounded [Queue] and picked up by the consumer goroutine.
//
// # Main Types
//
//   - [Scheduler]: the contract consumed by the lifecycle controller and dispatcher
//   - [Queue]: unbounded single-consumer FIFO of tasks
//   - [Loop]: a Scheduler backed by a dedicated goroutine
//
// # Basic Usage
//
//	loop := uiqueue.NewLoop(logger)
//	loop.Start()
//	defer loop.Stop()
//
//	loop.Post(func() {
//	    // runs on the loop goroutine; loop.IsCurrent() == true here
//	})
//
// Other UI runtimes (for example a Bubble Tea program) provide their own
// Scheduler implementation built on the same Queue.
package uiqueue
