package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartStage opens a span named after stage and returns a function that ends
// it and records the elapsed time to [Metrics.StageDuration].
func (m *Metrics) StartStage(ctx context.Context, stage string) (context.Context, func()) {
	start := time.Now()
	ctx, span := StartSpan(ctx, stage)
	return ctx, func() {
		m.StageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(Attr("stage", stage)))
		span.End()
	}
}

// TimeProvider records one provider call of kind: latency, request status and
// an error count on failure. err is returned unchanged.
func (m *Metrics) TimeProvider(ctx context.Context, kind string, start time.Time, err error) error {
	m.ProviderDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(Attr("kind", kind)))
	if err != nil {
		m.RecordProviderRequest(ctx, kind, StatusFailed)
		m.RecordProviderError(ctx, kind)
		trace.SpanFromContext(ctx).RecordError(err)
		return err
	}
	m.RecordProviderRequest(ctx, kind, StatusOK)
	return nil
}
