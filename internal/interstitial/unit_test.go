package interstitial

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/OlenaTeqBlaze/adunit/internal/dispatch"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/logging"
	"github.com/OlenaTeqBlaze/adunit/internal/telemetry"
	"github.com/OlenaTeqBlaze/adunit/internal/testutil"
	"github.com/OlenaTeqBlaze/adunit/internal/uiqueue"
)

// fakeCoordinator records Bind and Refresh calls. Tests drive the load
// outcome themselves through the Unit's listener methods.
type fakeCoordinator struct {
	mu        sync.Mutex
	listener  LoadListener
	reporter  InteractionReporter
	refreshes int
}

func (f *fakeCoordinator) Bind(listener LoadListener, reporter InteractionReporter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = listener
	f.reporter = reporter
}

func (f *fakeCoordinator) Refresh(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeCoordinator) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func newTestUnit(t *testing.T, loop *uiqueue.Loop, opts ...Option) (*Unit, *fakeCoordinator, *dispatch.Recorder) {
	t.Helper()

	coord := &fakeCoordinator{}
	rec := dispatch.NewRecorder(loop)
	opts = append([]Option{WithUnitID("unit-1"), WithObserver(rec)}, opts...)
	unit, err := New(coord, loop, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return unit, coord, rec
}

// countingAction returns a show action and a counter of its invocations.
func countingAction() (ShowAction, *atomic.Int32) {
	var n atomic.Int32
	return func(*Host) { n.Add(1) }, &n
}

func show(t *testing.T, loop *uiqueue.Loop, unit *Unit, host *Host) {
	t.Helper()
	testutil.OnLoop(t, loop, func() {
		if err := unit.Show(host); err != nil {
			t.Errorf("Show() error = %v", err)
		}
	})
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseLoading, "loading"},
		{PhaseReady, "ready"},
		{PhaseShowing, "showing"},
		{Phase(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.phase.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePhase(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseLoading, PhaseReady, PhaseShowing} {
		got, ok := ParsePhase(p.String())
		if !ok || got != p {
			t.Errorf("ParsePhase(%q) = %v, %v", p.String(), got, ok)
		}
	}
	if _, ok := ParsePhase("closed"); ok {
		t.Error("ParsePhase should reject unknown names")
	}
}

func TestNew(t *testing.T) {
	loop := testutil.StartLoop(t)

	t.Run("requires collaborators", func(t *testing.T) {
		if _, err := New(nil, loop); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("expected validation error for nil coordinator, got %v", err)
		}
		if _, err := New(&fakeCoordinator{}, nil); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("expected validation error for nil scheduler, got %v", err)
		}
	})

	t.Run("binds and starts idle", func(t *testing.T) {
		coord := &fakeCoordinator{}
		unit, err := New(coord, loop)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if unit.ID() == "" {
			t.Error("expected a generated unit ID")
		}
		if unit.Phase() != PhaseIdle {
			t.Errorf("Phase() = %v, want idle", unit.Phase())
		}
		if coord.listener != unit || coord.reporter != unit {
			t.Error("unit should bind itself as listener and reporter")
		}
		if unit.IsReady() {
			t.Error("new unit should not be ready")
		}
		if unit.PresentationHost() != nil {
			t.Error("new unit should have no presentation host")
		}
	})
}

func TestUnit_LoadAd(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, coord, _ := newTestUnit(t, loop)

	unit.LoadAd(context.Background())
	if unit.Phase() != PhaseLoading {
		t.Errorf("Phase() = %v, want loading", unit.Phase())
	}
	if unit.CycleID() == "" {
		t.Error("loading unit should have a cycle ID")
	}
	if coord.refreshCount() != 1 {
		t.Errorf("refreshes = %d, want 1", coord.refreshCount())
	}

	unit.LoadAd(context.Background())
	if coord.refreshCount() != 2 {
		t.Errorf("every LoadAd should refresh, got %d", coord.refreshCount())
	}
}

func TestUnit_SuccessfulCycle(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	host := NewHost("main")

	unit.LoadAd(context.Background())
	cycle := unit.CycleID()

	var (
		gotHost          *Host
		willPresentFirst bool
	)
	action := func(h *Host) {
		gotHost = h
		willPresentFirst = rec.Count(event.TypeWillPresent) == 1
	}

	go unit.OnLoaded(action, func() bool { return true })
	if !rec.WaitFor(event.TypeAdReceived, time.Second) {
		t.Fatal("ad received not delivered")
	}
	if !unit.IsReady() {
		t.Fatal("IsReady() = false after successful load")
	}
	if unit.CycleID() != cycle {
		t.Errorf("ready cycle = %q, want %q", unit.CycleID(), cycle)
	}

	show(t, loop, unit, host)
	if gotHost != host {
		t.Error("show action should receive the presentation host")
	}
	if !willPresentFirst {
		t.Error("will-present should be delivered before the show action runs")
	}
	if unit.Phase() != PhaseShowing {
		t.Errorf("Phase() = %v, want showing", unit.Phase())
	}

	go unit.OnDidDismiss()
	if !rec.WaitFor(event.TypeDidDismiss, time.Second) {
		t.Fatal("did dismiss not delivered")
	}
	if unit.IsReady() {
		t.Error("IsReady() = true after dismiss")
	}
	if unit.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", unit.Phase())
	}

	want := []string{event.TypeAdReceived, event.TypeWillPresent, event.TypeDidDismiss}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnit_FailedCycle(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	cause := errors.NewLoadError("no inventory", errors.ErrNoFill)

	unit.LoadAd(context.Background())
	go unit.OnFailed(cause)
	if !rec.WaitFor(event.TypeAdFailed, time.Second) {
		t.Fatal("ad failed not delivered")
	}
	testutil.Flush(t, loop)

	if rec.Count(event.TypeAdFailed) != 1 {
		t.Errorf("failure delivered %d times, want 1", rec.Count(event.TypeAdFailed))
	}
	for _, r := range rec.Records() {
		if r.Type == event.TypeAdFailed && r.Err != cause {
			t.Errorf("observer got %v, want the coordinator's error unchanged", r.Err)
		}
	}
	if unit.IsReady() {
		t.Error("IsReady() = true after failed load")
	}
	if unit.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", unit.Phase())
	}

	show(t, loop, unit, NewHost("main"))
	testutil.Flush(t, loop)
	if rec.Count(event.TypeWillPresent) != 0 {
		t.Error("show after a failed load should not present")
	}
}

func TestUnit_FailureWithoutError(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)

	unit.OnFailed(nil)
	if !rec.WaitFor(event.TypeAdFailed, time.Second) {
		t.Fatal("ad failed not delivered")
	}
	r := rec.Records()[0]
	if !errors.Is(r.Err, errors.ErrNoFill) {
		t.Errorf("expected a no-fill error for a nil failure, got %v", r.Err)
	}
	var loadErr *errors.LoadError
	if !errors.As(r.Err, &loadErr) {
		t.Fatalf("expected a *LoadError, got %T", r.Err)
	}
	if loadErr.UnitID != "unit-1" || loadErr.CycleID == "" {
		t.Errorf("error context = unit %q cycle %q, want unit-1 and a cycle", loadErr.UnitID, loadErr.CycleID)
	}
}

func TestUnit_ShowWithoutLoadIsIgnored(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)

	show(t, loop, unit, NewHost("main"))
	unit.LoadAd(context.Background())
	show(t, loop, unit, NewHost("main"))
	testutil.Flush(t, loop)

	if rec.Count(event.TypeWillPresent) != 0 {
		t.Error("show with nothing ready should not notify will-present")
	}
	if unit.Phase() != PhaseLoading {
		t.Errorf("Phase() = %v, want loading", unit.Phase())
	}
}

func TestUnit_ShowWhileShowingIsIgnored(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	action, calls := countingAction()

	unit.OnLoaded(action, nil)
	show(t, loop, unit, NewHost("main"))
	show(t, loop, unit, NewHost("main"))
	show(t, loop, unit, NewHost("other"))
	testutil.Flush(t, loop)

	if calls.Load() != 1 {
		t.Errorf("show action invoked %d times, want 1", calls.Load())
	}
	if rec.Count(event.TypeWillPresent) != 1 {
		t.Errorf("will-present delivered %d times, want 1", rec.Count(event.TypeWillPresent))
	}
}

func TestUnit_IgnoredShowLogsReason(t *testing.T) {
	loop := testutil.StartLoop(t)
	var buf bytes.Buffer
	unit, _, _ := newTestUnit(t, loop, WithLogger(logging.NewWriterLogger(&buf, "debug")))

	show(t, loop, unit, NewHost("main"))
	if !strings.Contains(buf.String(), errors.ErrNotReady.Error()) {
		t.Errorf("idle show should log %q:\n%s", errors.ErrNotReady, buf.String())
	}

	unit.OnLoaded(func(*Host) {}, nil)
	show(t, loop, unit, NewHost("main"))
	testutil.Flush(t, loop)
	buf.Reset()
	show(t, loop, unit, NewHost("main"))
	if !strings.Contains(buf.String(), errors.ErrAlreadyShowing.Error()) {
		t.Errorf("show while showing should log %q:\n%s", errors.ErrAlreadyShowing, buf.String())
	}
}

func TestUnit_IsReadyFollowsPredicate(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)

	var valid atomic.Bool
	valid.Store(true)
	unit.OnLoaded(func(*Host) {}, valid.Load)

	if !unit.IsReady() {
		t.Error("IsReady() = false while predicate is true")
	}
	valid.Store(false)
	if unit.IsReady() {
		t.Error("IsReady() = true while predicate is false")
	}

	// A newer load replaces the predicate.
	unit.OnLoaded(func(*Host) {}, func() bool { return true })
	if !unit.IsReady() {
		t.Error("IsReady() should follow the latest predicate")
	}

	show(t, loop, unit, NewHost("main"))
	if unit.IsReady() {
		t.Error("IsReady() = true after show consumed the ad")
	}
}

func TestUnit_IsReadyRecoversPredicatePanic(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)

	unit.OnLoaded(func(*Host) {}, func() bool { panic("expired creative") })
	if unit.IsReady() {
		t.Error("a panicking predicate should read as not ready")
	}
	if unit.Phase() != PhaseReady {
		t.Errorf("Phase() = %v, want ready", unit.Phase())
	}
}

func TestUnit_LatestLoadWins(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)
	first, firstCalls := countingAction()
	second, secondCalls := countingAction()

	unit.OnLoaded(first, nil)
	unit.OnLoaded(second, nil)
	show(t, loop, unit, NewHost("main"))

	if firstCalls.Load() != 0 {
		t.Error("overwritten show action should never run")
	}
	if secondCalls.Load() != 1 {
		t.Errorf("latest show action invoked %d times, want 1", secondCalls.Load())
	}
}

func TestUnit_FailureWhileReadyKeepsAd(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	action, calls := countingAction()

	unit.OnLoaded(action, nil)
	unit.LoadAd(context.Background())
	unit.OnFailed(errors.NewLoadError("timed out", errors.ErrLoadTimeout))

	if unit.Phase() != PhaseReady {
		t.Errorf("Phase() = %v, want ready", unit.Phase())
	}
	show(t, loop, unit, NewHost("main"))
	if calls.Load() != 1 {
		t.Error("ready ad should still be shown after a later failure")
	}
	if !rec.WaitFor(event.TypeAdFailed, time.Second) {
		t.Error("failure should still be reported")
	}
}

func TestUnit_LoadedWhileShowingIsQueued(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	first, firstCalls := countingAction()
	second, secondCalls := countingAction()

	unit.OnLoaded(first, nil)
	show(t, loop, unit, NewHost("main"))

	unit.LoadAd(context.Background())
	if unit.Phase() != PhaseShowing {
		t.Errorf("LoadAd during a presentation changed phase to %v", unit.Phase())
	}
	unit.OnLoaded(second, nil)
	if unit.Phase() != PhaseShowing {
		t.Errorf("Phase() = %v, want showing until dismiss", unit.Phase())
	}
	if !unit.IsReady() {
		t.Error("IsReady() should report the queued ad")
	}

	show(t, loop, unit, NewHost("main"))
	if secondCalls.Load() != 0 {
		t.Error("queued ad must not be shown before the current one is dismissed")
	}

	unit.OnDidDismiss()
	if unit.Phase() != PhaseReady {
		t.Fatalf("Phase() = %v, want ready after dismiss", unit.Phase())
	}
	show(t, loop, unit, NewHost("main"))
	if firstCalls.Load() != 1 || secondCalls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", firstCalls.Load(), secondCalls.Load())
	}
	testutil.Flush(t, loop)
	if rec.Count(event.TypeWillPresent) != 2 {
		t.Errorf("will-present delivered %d times, want 2", rec.Count(event.TypeWillPresent))
	}
}

func TestUnit_SecondCycleAfterDismiss(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)

	var cycles []string
	for i := range 2 {
		action, calls := countingAction()
		unit.LoadAd(context.Background())
		unit.OnLoaded(action, func() bool { return true })
		cycles = append(cycles, unit.CycleID())

		if !unit.IsReady() {
			t.Fatalf("cycle %d: IsReady() = false", i)
		}
		show(t, loop, unit, NewHost("main"))
		if calls.Load() != 1 {
			t.Fatalf("cycle %d: action invoked %d times", i, calls.Load())
		}
		unit.OnDidDismiss()
		if unit.Phase() != PhaseIdle || unit.IsReady() {
			t.Fatalf("cycle %d: unit not reset after dismiss", i)
		}
	}
	testutil.Flush(t, loop)

	if cycles[0] == cycles[1] {
		t.Error("each load should start a new cycle")
	}
	want := []string{
		event.TypeAdReceived, event.TypeWillPresent, event.TypeDidDismiss,
		event.TypeAdReceived, event.TypeWillPresent, event.TypeDidDismiss,
	}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnit_WillPresentWaitsForQueuedNotifications(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)
	first, _ := countingAction()
	second, secondCalls := countingAction()

	unit.OnLoaded(first, nil)
	show(t, loop, unit, NewHost("main"))

	// The dismiss and the next load land while the loop is busy, so their
	// notifications are still queued when the second Show runs.
	release := make(chan struct{})
	loop.Post(func() { <-release })
	unit.OnDidDismiss()
	unit.OnLoaded(second, nil)

	var seenBeforeAction []string
	loop.Post(func() {
		host := NewHost("main")
		if err := unit.Show(host); err != nil {
			t.Errorf("Show() error = %v", err)
		}
		seenBeforeAction = rec.Types()
		runtime.KeepAlive(host)
	})
	close(release)
	testutil.Flush(t, loop)

	if secondCalls.Load() != 1 {
		t.Fatalf("second action invoked %d times, want 1", secondCalls.Load())
	}
	want := []string{
		event.TypeAdReceived, event.TypeWillPresent,
		event.TypeDidDismiss, event.TypeAdReceived, event.TypeWillPresent,
	}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, got[i], want[i])
		}
	}
	if len(seenBeforeAction) != len(want) {
		t.Errorf("notifications delivered when Show returned = %v, want %v", seenBeforeAction, want)
	}
}

func TestUnit_DismissOutsideShowingIsIgnored(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)

	unit.OnDidDismiss()
	unit.OnLoaded(func(*Host) {}, nil)
	unit.OnDidDismiss()
	testutil.Flush(t, loop)

	if unit.Phase() != PhaseReady {
		t.Errorf("Phase() = %v, want ready", unit.Phase())
	}
	if rec.Count(event.TypeDidDismiss) != 0 {
		t.Error("stray dismiss should not reach the observer")
	}
}

func TestUnit_NilActionReportedAsFailure(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, rec := newTestUnit(t, loop)

	unit.LoadAd(context.Background())
	unit.OnLoaded(nil, func() bool { return true })

	if unit.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", unit.Phase())
	}
	if !rec.WaitFor(event.TypeAdFailed, time.Second) {
		t.Fatal("nil action should be reported as a failure")
	}
	if !errors.Is(rec.Records()[0].Err, errors.ErrInvalidLoadResult) {
		t.Errorf("unexpected error %v", rec.Records()[0].Err)
	}
}

func TestUnit_ShowOffUIContext(t *testing.T) {
	loop := testutil.StartLoop(t)

	t.Run("returns precondition error", func(t *testing.T) {
		unit, _, _ := newTestUnit(t, loop)
		action, calls := countingAction()
		unit.OnLoaded(action, nil)

		err := unit.Show(NewHost("main"))
		if !errors.Is(err, errors.ErrOffUIContext) {
			t.Fatalf("Show() error = %v, want ErrOffUIContext", err)
		}
		var pe *errors.PreconditionError
		if !errors.As(err, &pe) || pe.Phase != "ready" {
			t.Errorf("expected a precondition error carrying the phase, got %v", err)
		}
		if calls.Load() != 0 || unit.Phase() != PhaseReady {
			t.Error("rejected show must not consume the ad")
		}
	})

	t.Run("panics when strict", func(t *testing.T) {
		unit, _, _ := newTestUnit(t, loop, WithStrictThreading(true))
		defer func() {
			if recover() == nil {
				t.Error("expected panic in strict mode")
			}
		}()
		_ = unit.Show(NewHost("main"))
	})
}

func TestUnit_ReentrantShowFromAction(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)

	var (
		calls      atomic.Int32
		innerErr   error
		innerReady bool
	)
	action := func(h *Host) {
		calls.Add(1)
		innerReady = unit.IsReady()
		innerErr = unit.Show(h)
	}
	unit.OnLoaded(action, nil)

	done := make(chan error, 1)
	go func() {
		done <- loop.Sync(func() { _ = unit.Show(NewHost("main")) })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("show deadlocked when the action called back into the unit")
	}
	if calls.Load() != 1 {
		t.Errorf("action invoked %d times, want 1", calls.Load())
	}
	if innerErr != nil || innerReady {
		t.Errorf("nested calls: err=%v ready=%v, want nil/false", innerErr, innerReady)
	}
}

func TestUnit_PresentationHostIsWeak(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)
	unit.OnLoaded(func(*Host) {}, nil)

	host := NewHost("main")
	testutil.OnLoop(t, loop, func() {
		if err := unit.Show(host); err != nil {
			t.Errorf("Show() error = %v", err)
		}
	})
	if unit.PresentationHost() != host {
		t.Fatal("PresentationHost() should resolve while the host is alive")
	}

	host = nil
	testutil.Eventually(t, 2*time.Second, func() bool {
		runtime.GC()
		return unit.PresentationHost() == nil
	}, "released host should resolve to nil")

	// The unit keeps working without its host.
	unit.OnDidDismiss()
	if unit.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", unit.Phase())
	}
}

func TestUnit_DismissClearsPresentationHost(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)
	host := NewHost("main")

	unit.OnLoaded(func(*Host) {}, nil)
	show(t, loop, unit, host)
	unit.OnDidDismiss()

	if unit.PresentationHost() != nil {
		t.Error("dismissed unit should not resolve a presentation host")
	}
	runtime.KeepAlive(host)
}

func TestUnit_InteractionsDeliveredOnUIContext(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, coord, rec := newTestUnit(t, loop)

	unit.OnLoaded(func(*Host) {}, nil)
	show(t, loop, unit, NewHost("main"))

	reporter := coord.reporter
	var wg conc.WaitGroup
	wg.Go(reporter.OnImpression)
	wg.Go(reporter.OnDisplay)
	wg.Go(reporter.OnClick)
	wg.Go(reporter.OnWillLeaveApp)
	wg.Go(reporter.OnComplete)
	wg.Go(reporter.OnWillPresent)
	wg.Wait()
	testutil.Flush(t, loop)

	for _, typ := range []string{
		event.TypeImpression, event.TypeDisplayed, event.TypeDidClick,
		event.TypeWillLeaveApp, event.TypeCompleted,
	} {
		if rec.Count(typ) != 1 {
			t.Errorf("%s delivered %d times, want 1", typ, rec.Count(typ))
		}
	}
	if rec.Count(event.TypeWillPresent) != 1 {
		t.Error("reporter will-present should not duplicate the notification sent by Show")
	}
	for i, r := range rec.Records() {
		if !r.OnUIContext {
			t.Errorf("notification %d (%s) delivered off the UI context", i, r.Type)
		}
	}
}

func TestUnit_NoDoublePresentation(t *testing.T) {
	loop := testutil.StartLoop(t)
	unit, _, _ := newTestUnit(t, loop)

	var (
		active     atomic.Int32
		overlapped atomic.Bool
		presented  atomic.Int32
		dismissers conc.WaitGroup
	)
	action := func(*Host) {
		presented.Add(1)
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		dismissers.Go(func() {
			active.Add(-1)
			unit.OnDidDismiss()
		})
	}

	host := NewHost("main")
	var wg conc.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 50 {
				unit.LoadAd(context.Background())
				unit.OnLoaded(action, nil)
			}
		})
		wg.Go(func() {
			for range 50 {
				loop.Post(func() { _ = unit.Show(host) })
				_ = unit.IsReady()
			}
		})
	}
	wg.Wait()
	testutil.Flush(t, loop)
	dismissers.Wait()

	if overlapped.Load() {
		t.Fatal("two presentations were active at the same time")
	}
	if presented.Load() == 0 {
		t.Error("expected at least one presentation")
	}
	if unit.Phase() == PhaseShowing {
		t.Error("every presentation was dismissed; unit should not be showing")
	}
}

func TestUnit_Metrics(t *testing.T) {
	loop := testutil.StartLoop(t)
	provider := telemetry.NewProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := telemetry.NewLifecycleMetrics(provider.MeterProvider())
	if err != nil {
		t.Fatalf("NewLifecycleMetrics() error = %v", err)
	}
	unit, _, _ := newTestUnit(t, loop, WithMetrics(metrics))

	show(t, loop, unit, NewHost("main"))
	unit.LoadAd(context.Background())
	unit.OnLoaded(func(*Host) {}, nil)
	show(t, loop, unit, NewHost("main"))
	unit.OnDidDismiss()
	testutil.Flush(t, loop)

	totals, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	want := []struct {
		name  string
		attrs string
		value int64
	}{
		{telemetry.MetricIgnoredShows, "phase=idle,unit=unit-1", 1},
		{telemetry.MetricTransitions, "from=idle,to=loading,unit=unit-1", 1},
		{telemetry.MetricTransitions, "from=loading,to=ready,unit=unit-1", 1},
		{telemetry.MetricTransitions, "from=ready,to=showing,unit=unit-1", 1},
		{telemetry.MetricTransitions, "from=showing,to=idle,unit=unit-1", 1},
		{telemetry.MetricNotifications, "delivered=true,event=ad.received", 1},
		{telemetry.MetricNotifications, "delivered=true,event=ad.did_dismiss", 1},
	}
	got := make(map[string]int64)
	for _, c := range totals {
		got[c.Name+"|"+c.Attributes] = c.Value
	}
	for _, w := range want {
		if v := got[w.name+"|"+w.attrs]; v != w.value {
			t.Errorf("%s{%s} = %d, want %d", w.name, w.attrs, v, w.value)
		}
	}
}

func TestUnit_PublishesToBus(t *testing.T) {
	loop := testutil.StartLoop(t)
	bus := event.NewBus(nil)

	var (
		mu     sync.Mutex
		events []event.LifecycleEvent
	)
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.(event.LifecycleEvent))
	})

	unit, _, _ := newTestUnit(t, loop, WithBus(bus))
	unit.LoadAd(context.Background())
	cycle := unit.CycleID()
	unit.OnLoaded(func(*Host) {}, nil)
	show(t, loop, unit, NewHost("main"))
	unit.OnClick()
	unit.OnDidDismiss()
	testutil.Flush(t, loop)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 4 {
		t.Fatalf("published %d events, want 4", len(events))
	}
	for _, e := range events {
		if e.UnitID != "unit-1" || e.CycleID != cycle {
			t.Errorf("%s attributed to %s/%s, want unit-1/%s", e.EventType(), e.UnitID, e.CycleID, cycle)
		}
	}
}
