// Package scenario runs scripted ad unit lifecycles. A scenario is a YAML
// document listing steps (load, show, dismiss, expectations, ...) that are
// executed in order against a fresh interstitial.Unit backed by the
// simulated load coordinator.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
)

// Step actions.
const (
	ActionLoad         = "load"
	ActionWaitReady    = "wait_ready"
	ActionWaitEvent    = "wait_event"
	ActionShow         = "show"
	ActionClick        = "click"
	ActionLeaveApp     = "leave_app"
	ActionDismiss      = "dismiss"
	ActionReleaseHost  = "release_host"
	ActionExpectReady  = "expect_ready"
	ActionExpectPhase  = "expect_phase"
	ActionExpectHost   = "expect_host"
	ActionExpectEvents = "expect_events"
	ActionExpectCount  = "expect_count"
	ActionSleep        = "sleep"
)

// Actions returns every supported step action.
func Actions() []string {
	return []string{
		ActionLoad, ActionWaitReady, ActionWaitEvent, ActionShow, ActionClick,
		ActionLeaveApp, ActionDismiss, ActionReleaseHost, ActionExpectReady,
		ActionExpectPhase, ActionExpectHost, ActionExpectEvents, ActionExpectCount,
		ActionSleep,
	}
}

// DefaultHost is the host name used by show and release_host when a step
// does not name one.
const DefaultHost = "main"

// Scenario is a scripted lifecycle.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Simulator   SimulatorOverrides `yaml:"simulator,omitempty"`
	Steps       []Step             `yaml:"steps"`
}

// SimulatorOverrides replaces individual simulator settings for one
// scenario. Unset fields keep the configured values.
type SimulatorOverrides struct {
	LoadLatencyMs   *int     `yaml:"load_latency_ms,omitempty"`
	LatencyJitterMs *int     `yaml:"latency_jitter_ms,omitempty"`
	FillRate        *float64 `yaml:"fill_rate,omitempty"`
	FailureKind     *string  `yaml:"failure_kind,omitempty"`
	ExpiresAfterMs  *int     `yaml:"expires_after_ms,omitempty"`
	AutoDismissMs   *int     `yaml:"auto_dismiss_ms,omitempty"`
	Seed            *int64   `yaml:"seed,omitempty"`
}

// Apply returns base with the overrides applied.
func (o SimulatorOverrides) Apply(base config.SimulatorConfig) config.SimulatorConfig {
	if o.LoadLatencyMs != nil {
		base.LoadLatencyMs = *o.LoadLatencyMs
	}
	if o.LatencyJitterMs != nil {
		base.LatencyJitterMs = *o.LatencyJitterMs
	}
	if o.FillRate != nil {
		base.FillRate = *o.FillRate
	}
	if o.FailureKind != nil {
		base.FailureKind = *o.FailureKind
	}
	if o.ExpiresAfterMs != nil {
		base.ExpiresAfterMs = *o.ExpiresAfterMs
	}
	if o.AutoDismissMs != nil {
		base.AutoDismissMs = *o.AutoDismissMs
	}
	if o.Seed != nil {
		base.Seed = *o.Seed
	}
	return base
}

// Step is one scripted action or expectation.
type Step struct {
	Action string `yaml:"action"`

	// Host names the presentation host for show, release_host and expect_host.
	Host string `yaml:"host,omitempty"`
	// Want is the expected value for expect_ready and expect_host (default true).
	Want *bool `yaml:"want,omitempty"`
	// Phase is the expected phase for expect_phase.
	Phase string `yaml:"phase,omitempty"`
	// Event is the event type for wait_event and expect_count.
	Event string `yaml:"event,omitempty"`
	// Events is the exact delivered sequence for expect_events.
	Events []string `yaml:"events,omitempty"`
	// Count is the expected number of deliveries for expect_count.
	Count int `yaml:"count,omitempty"`
	// TimeoutMs bounds the wait_* and expect_host steps (default 2000).
	TimeoutMs int `yaml:"timeout_ms,omitempty"`
	// DurationMs is how long sleep waits.
	DurationMs int `yaml:"duration_ms,omitempty"`
}

// want returns Want, defaulting to true.
func (s Step) want() bool {
	return s.Want == nil || *s.Want
}

func (s Step) host() string {
	if s.Host == "" {
		return DefaultHost
	}
	return s.Host
}

// Parse decodes and validates a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "failed to decode scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %s", path)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %s", path)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Validate checks that every step is well formed.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.NewValidationError("scenario has no steps").WithField("steps")
	}
	if kind := sc.Simulator.FailureKind; kind != nil && !config.IsValidFailureKind(*kind) {
		return errors.NewValidationError("unknown failure kind").WithField("simulator.failure_kind").WithValue(*kind)
	}
	if rate := sc.Simulator.FillRate; rate != nil && (*rate < 0 || *rate > 1) {
		return errors.NewValidationError("fill rate must be between 0 and 1").WithField("simulator.fill_rate").WithValue(*rate)
	}

	for i, step := range sc.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if !slices.Contains(Actions(), step.Action) {
			return errors.NewValidationError("unknown action").WithField(field + ".action").WithValue(step.Action)
		}
		switch step.Action {
		case ActionExpectPhase:
			if _, ok := interstitial.ParsePhase(step.Phase); !ok {
				return errors.NewValidationError("unknown phase").WithField(field + ".phase").WithValue(step.Phase)
			}
		case ActionWaitEvent, ActionExpectCount:
			if !slices.Contains(event.AllTypes(), step.Event) {
				return errors.NewValidationError("unknown event type").WithField(field + ".event").WithValue(step.Event)
			}
		case ActionExpectEvents:
			for _, e := range step.Events {
				if !slices.Contains(event.AllTypes(), e) {
					return errors.NewValidationError("unknown event type").WithField(field + ".events").WithValue(e)
				}
			}
		}
		if step.TimeoutMs < 0 || step.DurationMs < 0 || step.Count < 0 {
			return errors.NewValidationError("durations and counts must be non-negative").WithField(field)
		}
	}
	return nil
}
