// Package observe provides the OpenTelemetry metric instruments and the
// structured logger used by the embedding pipeline.
//
// Instruments are created from an explicit [metric.MeterProvider]. Library
// code receives a *Metrics; when none is supplied a no-op provider is used so
// the core stays free of global state. The CLI installs an SDK provider with
// a manual reader ([NewProvider]) and can dump the collected values after a
// run.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all sgt metrics.
const meterName = "sgt"

// Metrics holds the instruments recorded by the corpus driver.
// All fields are safe for concurrent use.
type Metrics struct {
	// SequencesEmbedded counts successful embeddings. Use with attribute:
	//   attribute.String("mode", ...)
	SequencesEmbedded metric.Int64Counter

	// SequenceFailures counts failed sequences. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("kind", ...)
	SequenceFailures metric.Int64Counter

	// CacheHits counts embeddings served from the embedding cache.
	CacheHits metric.Int64Counter

	// BatchDuration tracks wall time of a whole corpus batch.
	BatchDuration metric.Float64Histogram

	// SequenceLength tracks input sequence lengths.
	SequenceLength metric.Int64Histogram
}

var batchBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60,
}

var lengthBuckets = []float64{
	1, 10, 100, 1000, 10000, 100000,
}

// NewMetrics creates the instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SequencesEmbedded, err = m.Int64Counter("sgt.sequences.embedded",
		metric.WithDescription("Sequences embedded successfully, by execution mode."),
	); err != nil {
		return nil, err
	}
	if met.SequenceFailures, err = m.Int64Counter("sgt.sequences.failed",
		metric.WithDescription("Sequences that failed to embed, by execution mode and error kind."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("sgt.cache.hits",
		metric.WithDescription("Embeddings served from the embedding cache."),
	); err != nil {
		return nil, err
	}
	if met.BatchDuration, err = m.Float64Histogram("sgt.batch.duration",
		metric.WithDescription("Wall time of a corpus batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(batchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SequenceLength, err = m.Int64Histogram("sgt.sequence.length",
		metric.WithDescription("Length of embedded sequences."),
		metric.WithExplicitBucketBoundaries(lengthBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics returns instruments backed by a no-op provider.
func NopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The no-op provider never fails.
		panic(err)
	}
	return m
}

// RecordBatch records the outcome of one batch.
func (m *Metrics) RecordBatch(ctx context.Context, mode string, succeeded int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.SequencesEmbedded.Add(ctx, int64(succeeded), attrs)
	m.BatchDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFailure counts a single failed sequence.
func (m *Metrics) RecordFailure(ctx context.Context, mode, kind string) {
	m.SequenceFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("kind", kind),
	))
}
