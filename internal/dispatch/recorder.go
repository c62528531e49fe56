package dispatch

import (
	"sync"
	"time"

	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// Record is one notification captured by a Recorder.
type Record struct {
	Type        string
	Err         error
	OnUIContext bool // whether delivery ran on the scheduler's context
	At          time.Time
}

// Recorder is an Observer that keeps every notification it receives along
// with the execution context it arrived on. Scenario runs and tests use it
// to assert ordering and thread affinity.
type Recorder struct {
	scheduler uiqueue.Scheduler

	mu      sync.Mutex
	records []Record
	notify  chan struct{}
}

// NewRecorder creates a Recorder checking delivery context against
// scheduler. A nil scheduler records OnUIContext as false.
func NewRecorder(scheduler uiqueue.Scheduler) *Recorder {
	return &Recorder{
		scheduler: scheduler,
		notify:    make(chan struct{}, 1),
	}
}

func (r *Recorder) add(eventType string, err error) {
	onUI := r.scheduler != nil && r.scheduler.IsCurrent()

	r.mu.Lock()
	r.records = append(r.records, Record{
		Type:        eventType,
		Err:         err,
		OnUIContext: onUI,
		At:          time.Now(),
	})
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Recorder) OnAdReceived()           { r.add(event.TypeAdReceived, nil) }
func (r *Recorder) OnAdFailed(err error)    { r.add(event.TypeAdFailed, err) }
func (r *Recorder) OnWillPresentAd()        { r.add(event.TypeWillPresent, nil) }
func (r *Recorder) OnDidDismissAd()         { r.add(event.TypeDidDismiss, nil) }
func (r *Recorder) OnDidClickAd()           { r.add(event.TypeDidClick, nil) }
func (r *Recorder) OnWillLeaveApplication() { r.add(event.TypeWillLeaveApp, nil) }
func (r *Recorder) OnAdImpression()         { r.add(event.TypeImpression, nil) }
func (r *Recorder) OnAdDisplayed()          { r.add(event.TypeDisplayed, nil) }
func (r *Recorder) OnAdCompleted()          { r.add(event.TypeCompleted, nil) }

// Records returns a copy of everything received so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Types returns the received event types in delivery order.
func (r *Recorder) Types() []string {
	records := r.Records()
	types := make([]string, len(records))
	for i, rec := range records {
		types[i] = rec.Type
	}
	return types
}

// Count returns how many notifications of eventType were received.
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Type == eventType {
			n++
		}
	}
	return n
}

// Reset discards all records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// WaitFor blocks until a notification of eventType has been received, or
// timeout elapses. Returns false on timeout.
func (r *Recorder) WaitFor(eventType string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if r.Count(eventType) > 0 {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Count(eventType) > 0
		}
	}
}

var (
	_ Observer            = (*Recorder)(nil)
	_ InteractionObserver = (*Recorder)(nil)
)
