package observe

import (
	"context"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider bundles an SDK meter provider with the manual reader attached to it.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Reader        *sdkmetric.ManualReader
}

// NewProvider creates an SDK meter provider backed by a manual reader.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}

// Snapshot collects current values as name -> total. Counters report their
// sum, histograms their observation count and sum under "<name>.count" and
// "<name>.sum".
func (p *Provider) Snapshot(ctx context.Context) (map[string]float64, error) {
	var rm metricdata.ResourceMetrics
	if err := p.Reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out[m.Name+".count"] += float64(dp.Count)
					out[m.Name+".sum"] += dp.Sum
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name+".count"] += float64(dp.Count)
					out[m.Name+".sum"] += float64(dp.Sum)
				}
			}
		}
	}
	return out, nil
}

// WriteSnapshot prints a snapshot sorted by metric name.
func (p *Provider) WriteSnapshot(ctx context.Context, w io.Writer) error {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%-32s %g\n", name, snap[name]); err != nil {
			return err
		}
	}
	return nil
}
