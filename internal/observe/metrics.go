// Package observe provides the observability primitives shared by every
// pipeline stage: OpenTelemetry metrics, tracing, trace-aware structured
// logging, and the HTTP middleware wrapping the /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus by [InitProvider]. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all callsight metrics.
const meterName = "github.com/MrWong99/callsight"

// Outcome attribute values. Negative results (rejected, no_match) are kept
// apart from failures so they never read as errors on a dashboard.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
	OutcomeNoAnswer  = "no_answer"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks wall time per pipeline stage. Attribute: stage.
	StageDuration metric.Float64Histogram

	// ProviderDuration tracks external provider latency. Attribute: kind
	// (llm, embeddings, segmenter, sentiment).
	ProviderDuration metric.Float64Histogram

	// --- Counters ---

	// FilesProcessed counts transcript files per stage. Attributes: stage, status.
	FilesProcessed metric.Int64Counter

	// TurnsSkipped counts malformed or unusable turns. Attributes: stage, reason.
	TurnsSkipped metric.Int64Counter

	// RegexObjections counts regex-path objections. Attribute: type.
	RegexObjections metric.Int64Counter

	// SemanticChunks counts semantic chunks. Attribute: outcome
	// (accepted, rejected, discarded, failed).
	SemanticChunks metric.Int64Counter

	// SentencesDropped counts sentences shorter than the minimum length.
	SentencesDropped metric.Int64Counter

	// ValidationOutcomes counts validator decisions. Attribute: outcome
	// (accepted, rejected, no_answer).
	ValidationOutcomes metric.Int64Counter

	// ProviderRequests counts provider calls. Attributes: kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attribute: kind.
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveFiles tracks files currently being processed by folder workers.
	ActiveFiles metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration tracks /metrics request time. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// in-process regex work through multi-second LLM calls.
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("callsight.stage.duration",
		metric.WithDescription("Wall time of a pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("callsight.provider.duration",
		metric.WithDescription("Latency of external provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.FilesProcessed, "callsight.files.processed", "Transcript files processed by stage and status."},
		{&met.TurnsSkipped, "callsight.turns.skipped", "Turns skipped by stage and reason."},
		{&met.RegexObjections, "callsight.regex.objections", "Objections found by the regex detector by type."},
		{&met.SemanticChunks, "callsight.semantic.chunks", "Semantic chunks by outcome."},
		{&met.SentencesDropped, "callsight.semantic.sentences_dropped", "Sentences dropped for being too short."},
		{&met.ValidationOutcomes, "callsight.validation.outcomes", "LLM validation decisions by outcome."},
		{&met.ProviderRequests, "callsight.provider.requests", "Provider requests by kind and status."},
		{&met.ProviderErrors, "callsight.provider.errors", "Provider errors by kind."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.ActiveFiles, err = m.Int64UpDownCounter("callsight.active_files",
		metric.WithDescription("Files currently being processed."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("callsight.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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
// first call using [otel.GetMeterProvider]. Call it after [InitProvider] so
// the instruments bind to the configured provider.
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

// RecordFile counts one processed file for stage.
func (m *Metrics) RecordFile(ctx context.Context, stage, status string) {
	m.FilesProcessed.Add(ctx, 1, metric.WithAttributes(Attr("stage", stage), Attr("status", status)))
}

// RecordSkippedTurn counts one skipped turn.
func (m *Metrics) RecordSkippedTurn(ctx context.Context, stage, reason string) {
	m.TurnsSkipped.Add(ctx, 1, metric.WithAttributes(Attr("stage", stage), Attr("reason", reason)))
}

// RecordObjection counts one regex objection of objType.
func (m *Metrics) RecordObjection(ctx context.Context, objType string) {
	m.RegexObjections.Add(ctx, 1, metric.WithAttributes(Attr("type", objType)))
}

// RecordChunk counts one semantic chunk with the given outcome.
func (m *Metrics) RecordChunk(ctx context.Context, outcome string) {
	m.SemanticChunks.Add(ctx, 1, metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordValidation counts one validator decision.
func (m *Metrics) RecordValidation(ctx context.Context, outcome string) {
	m.ValidationOutcomes.Add(ctx, 1, metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordProviderRequest counts one provider request.
func (m *Metrics) RecordProviderRequest(ctx context.Context, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind), Attr("status", status)))
}

// RecordProviderError counts one provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}
