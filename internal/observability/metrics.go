// Package observability provides the OTel metric instruments for the
// analysis engine. Only the metric API is used; counters are no-ops unless
// the embedding process installs a meter provider.
package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "repolens"

const (
	metricRecordsIngested = "repolens.records.ingested"
	metricParseWarnings   = "repolens.records.parse_warnings"
	metricT2Promotions    = "repolens.tier.t2_promotions"
	metricT3Computations  = "repolens.tier.t3_computations"
	metricDegraded        = "repolens.tier.degraded"
)

// Metrics holds the instruments for ingestion and tier promotion.
type Metrics struct {
	RecordsIngested metric.Int64Counter
	ParseWarnings   metric.Int64Counter
	T2Promotions    metric.Int64Counter
	T3Computations  metric.Int64Counter
	Degraded        metric.Int64Counter
}

// NewMetrics creates the engine's instruments from the given meter.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	b := newMetricBuilder(mt)

	m := &Metrics{
		RecordsIngested: b.counter(metricRecordsIngested, "Records ingested into the store", "{record}"),
		ParseWarnings:   b.counter(metricParseWarnings, "Malformed entries skipped during ingestion", "{record}"),
		T2Promotions:    b.counter(metricT2Promotions, "Records promoted to T2", "{record}"),
		T3Computations:  b.counter(metricT3Computations, "On-demand T3 breakdown computations", "{record}"),
		Degraded:        b.counter(metricDegraded, "Records with degraded metric computation", "{record}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return m, nil
}

// Default creates instruments from the globally registered meter provider.
// The global provider is a no-op unless the host process installs one, and
// instrument creation against it does not fail.
func Default() *Metrics {
	m, _ := NewMetrics(otel.Meter(meterName))

	return m
}
