// Package telemetry provides OpenTelemetry instrumentation for ad unit
// lifecycles.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LifecycleMetricsMeterName is the name used for the lifecycle metrics meter
const LifecycleMetricsMeterName = "github.com/OlenaTeqBlaze/adunit/lifecycle"

// Instrument names.
const (
	MetricTransitions   = "adunit_transitions_total"
	MetricIgnoredShows  = "adunit_show_ignored_total"
	MetricNotifications = "adunit_notifications_total"
	MetricLoadDuration  = "adunit_load_duration_seconds"
)

// LifecycleMetrics holds the OpenTelemetry instruments for one or more ad
// units. A nil *LifecycleMetrics is valid and records nothing.
type LifecycleMetrics struct {
	transitions   metric.Int64Counter
	ignoredShows  metric.Int64Counter
	notifications metric.Int64Counter
	loadDuration  metric.Float64Histogram
}

// NewLifecycleMetrics creates the lifecycle instruments on provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLifecycleMetrics(provider metric.MeterProvider) (*LifecycleMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(LifecycleMetricsMeterName)

	transitions, err := meter.Int64Counter(
		MetricTransitions,
		metric.WithDescription("Lifecycle phase transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	ignoredShows, err := meter.Int64Counter(
		MetricIgnoredShows,
		metric.WithDescription("Show calls ignored because no ad was ready or one was already showing"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		MetricNotifications,
		metric.WithDescription("Observer notifications processed on the UI execution context"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram(
		MetricLoadDuration,
		metric.WithDescription("Time from LoadAd to the load coordinator's result"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &LifecycleMetrics{
		transitions:   transitions,
		ignoredShows:  ignoredShows,
		notifications: notifications,
		loadDuration:  loadDuration,
	}, nil
}

// RecordTransition records a phase change of an ad unit.
func (m *LifecycleMetrics) RecordTransition(ctx context.Context, unitID, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("unit", unitID),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordIgnoredShow records a Show call that was a silent no-op.
func (m *LifecycleMetrics) RecordIgnoredShow(ctx context.Context, unitID, phase string) {
	if m == nil || m.ignoredShows == nil {
		return
	}
	m.ignoredShows.Add(ctx, 1, metric.WithAttributes(
		attribute.String("unit", unitID),
		attribute.String("phase", phase),
	))
}

// RecordNotification records an observer notification. delivered is false
// when no observer was registered and the notification was dropped.
func (m *LifecycleMetrics) RecordNotification(ctx context.Context, eventType string, delivered bool) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventType),
		attribute.Bool("delivered", delivered),
	))
}

// RecordLoadDuration records how long a load cycle took.
func (m *LifecycleMetrics) RecordLoadDuration(ctx context.Context, unitID string, duration time.Duration, success bool) {
	if m == nil || m.loadDuration == nil {
		return
	}
	m.loadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("unit", unitID),
		attribute.Bool("success", success),
	))
}
