package telemetry

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider is an in-process meter provider backed by a manual reader. The
// CLI uses it to print a counter summary when a run ends.
type Provider struct {
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader: reader,
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider returns the SDK meter provider to pass to NewLifecycleMetrics.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.mp
}

// CounterTotal is one data point of an Int64 sum, flattened for display.
type CounterTotal struct {
	Name       string
	Attributes string
	Value      int64
}

// Snapshot collects the current value of every Int64 counter, sorted by
// name and attributes.
func (p *Provider) Snapshot(ctx context.Context) ([]CounterTotal, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	var totals []CounterTotal
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals = append(totals, CounterTotal{
					Name:       m.Name,
					Attributes: formatAttributes(dp.Attributes),
					Value:      dp.Value,
				})
			}
		}
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Name != totals[j].Name {
			return totals[i].Name < totals[j].Name
		}
		return totals[i].Attributes < totals[j].Attributes
	})
	return totals, nil
}

// Shutdown releases the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

func formatAttributes(set attribute.Set) string {
	out := ""
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		if out != "" {
			out += ","
		}
		out += string(kv.Key) + "=" + kv.Value.Emit()
	}
	return out
}
