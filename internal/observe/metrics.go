// Package observe provides the service's observability primitives:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed to
// Prometheus by [InitProvider]. Tests should build their own [Metrics] with
// [NewMetrics] and an SDK ManualReader rather than use [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/cmiique"

// Metrics holds all OpenTelemetry instruments of the service. All fields are
// safe for concurrent use.
type Metrics struct {
	// MatchDuration tracks corpus matching latency. Attributes: from, to.
	MatchDuration metric.Float64Histogram

	// GenerativeDuration tracks generative fallback latency. Attribute: status.
	GenerativeDuration metric.Float64Histogram

	// Translations counts completed translations. Attributes: source, from, to.
	Translations metric.Int64Counter

	// FallbackDecisions counts policy decisions. Attributes: tier, decision.
	FallbackDecisions metric.Int64Counter

	// ConsistencyChecks counts back-translation verdicts. Attribute: result.
	ConsistencyChecks metric.Int64Counter

	// PolysemyOverrides counts generative output replaced by a sense
	// translation. Attribute: sense.
	PolysemyOverrides metric.Int64Counter

	// ProviderErrors counts failed LLM calls. Attribute: provider.
	ProviderErrors metric.Int64Counter

	// CircuitTransitions counts breaker state changes. Attributes: provider, state.
	CircuitTransitions metric.Int64Counter

	// ActiveStreams tracks open websocket translation streams.
	ActiveStreams metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// matchBuckets covers in-memory corpus scans (seconds).
var matchBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025,
}

// latencyBuckets covers remote model calls and HTTP requests (seconds).
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.MatchDuration, err = m.Float64Histogram("cmiique.match.duration",
		metric.WithDescription("Latency of corpus matching."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(matchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerativeDuration, err = m.Float64Histogram("cmiique.generative.duration",
		metric.WithDescription("Latency of generative fallback translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("cmiique.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Translations, err = m.Int64Counter("cmiique.translations",
		metric.WithDescription("Completed translations by source, from and to language."),
	); err != nil {
		return nil, err
	}
	if met.FallbackDecisions, err = m.Int64Counter("cmiique.fallback.decisions",
		metric.WithDescription("Corpus-versus-fallback decisions by tier and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ConsistencyChecks, err = m.Int64Counter("cmiique.consistency.checks",
		metric.WithDescription("Back-translation checks by result."),
	); err != nil {
		return nil, err
	}
	if met.PolysemyOverrides, err = m.Int64Counter("cmiique.polysemy.overrides",
		metric.WithDescription("Generative translations replaced by a context sense."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("cmiique.provider.errors",
		metric.WithDescription("Failed LLM provider calls by provider."),
	); err != nil {
		return nil, err
	}
	if met.CircuitTransitions, err = m.Int64Counter("cmiique.circuit.transitions",
		metric.WithDescription("Circuit breaker state changes by provider and new state."),
	); err != nil {
		return nil, err
	}

	if met.ActiveStreams, err = m.Int64UpDownCounter("cmiique.active_streams",
		metric.WithDescription("Number of open websocket translation streams."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordMatch records the latency of one corpus match.
func (m *Metrics) RecordMatch(ctx context.Context, from, to string, seconds float64) {
	m.MatchDuration.Record(ctx, seconds,
		metric.WithAttributes(Attr("from", from), Attr("to", to)),
	)
}

// RecordTranslation counts a completed translation.
func (m *Metrics) RecordTranslation(ctx context.Context, source, from, to string) {
	m.Translations.Add(ctx, 1,
		metric.WithAttributes(Attr("source", source), Attr("from", from), Attr("to", to)),
	)
}

// RecordDecision counts a policy decision.
func (m *Metrics) RecordDecision(ctx context.Context, tier, decision string) {
	m.FallbackDecisions.Add(ctx, 1,
		metric.WithAttributes(Attr("tier", tier), Attr("decision", decision)),
	)
}

// RecordConsistency counts a consistency verdict ("exact", "near" or "invalid").
func (m *Metrics) RecordConsistency(ctx context.Context, result string) {
	m.ConsistencyChecks.Add(ctx, 1, metric.WithAttributes(Attr("result", result)))
}

// RecordProviderError counts a failed provider call.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(Attr("provider", provider)))
}

// RecordCircuitTransition counts a breaker state change.
func (m *Metrics) RecordCircuitTransition(ctx context.Context, provider, state string) {
	m.CircuitTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("provider", provider), Attr("state", state)),
	)
}
