package interstitial

import "time"

// Phase is the externally visible lifecycle phase of a Unit.
type Phase int

const (
	// PhaseIdle indicates no load is in flight and nothing is ready.
	PhaseIdle Phase = iota

	// PhaseLoading indicates LoadAd was called and no result has arrived.
	PhaseLoading

	// PhaseReady indicates a show action is stored and Show may present it.
	PhaseReady

	// PhaseShowing indicates a presentation is in progress.
	PhaseShowing
)

// String returns a human-readable string for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseShowing:
		return "showing"
	default:
		return "unknown"
	}
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range []Phase{PhaseIdle, PhaseLoading, PhaseReady, PhaseShowing} {
		if p.String() == s {
			return p, true
		}
	}
	return PhaseIdle, false
}

// state is the sealed set of lifecycle states held behind Unit.mu. Each
// variant carries exactly the data valid in that phase, so a ready action
// and an in-progress presentation can never both be live.
type state interface {
	phase() Phase
	cycle() string
}

type idleState struct{}

func (idleState) phase() Phase  { return PhaseIdle }
func (idleState) cycle() string { return "" }

type loadingState struct {
	cycleID string
}

func (s loadingState) phase() Phase  { return PhaseLoading }
func (s loadingState) cycle() string { return s.cycleID }

type readyState struct {
	cycleID   string
	action    ShowAction
	predicate ReadyPredicate
}

func (s readyState) phase() Phase  { return PhaseReady }
func (s readyState) cycle() string { return s.cycleID }

// showingState is a presentation in progress. next holds a load result that
// arrived during the presentation; it becomes the ready state on dismiss.
type showingState struct {
	cycleID   string
	startedAt time.Time
	next      *readyState
}

func (s showingState) phase() Phase  { return PhaseShowing }
func (s showingState) cycle() string { return s.cycleID }
