// Package testutil provides testing utilities for ad unit tests.
package testutil

import (
	"testing"
	"time"

	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// StartLoop starts a UI loop that is stopped when the test completes.
func StartLoop(t *testing.T) *uiqueue.Loop {
	t.Helper()

	loop := uiqueue.NewLoop(nil)
	loop.Start()
	t.Cleanup(loop.Stop)
	return loop
}

// OnLoop runs fn on the loop and waits for it. Use it to call UI-only
// operations such as Show from a test goroutine.
func OnLoop(t *testing.T, loop *uiqueue.Loop, fn func()) {
	t.Helper()

	if err := loop.Sync(fn); err != nil {
		t.Fatalf("failed to run on UI loop: %v", err)
	}
}

// Flush waits until every task posted to loop before the call has run.
func Flush(t *testing.T, loop *uiqueue.Loop) {
	t.Helper()
	OnLoop(t, loop, func() {})
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s: %s", timeout, msg)
	}
}
