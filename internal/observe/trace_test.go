package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs redirects the default slog logger into a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	useTestTracer(t)
	ctx, span := StartSpan(context.Background(), "op")
	defer span.End()
	cid := CorrelationID(ctx)
	if len(cid) != 32 || strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation ID %q is not a 32-char hex trace ID", cid)
	}
}

func TestLogger_IncludesTraceID(t *testing.T) {
	useTestTracer(t)
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "log-test")
	defer span.End()
	Logger(ctx).Info("semantic: file processed")

	if !strings.Contains(buf.String(), "trace_id=") || !strings.Contains(buf.String(), "span_id=") {
		t.Errorf("log output missing trace attributes: %s", buf.String())
	}
}

func TestLogger_NoSpan(t *testing.T) {
	buf := captureLogs(t)
	Logger(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log output should not contain trace_id: %s", buf.String())
	}
}

func TestStartStage(t *testing.T) {
	exp := useTestTracer(t)
	m, reader := newTestMetrics(t)

	_, end := m.StartStage(context.Background(), "semantic.ProcessFolder")
	end()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "semantic.ProcessFolder" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
	if findMetric(collect(t, reader), "callsight.stage.duration") == nil {
		t.Error("stage duration not recorded")
	}
}

func TestTimeProvider(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	if err := m.TimeProvider(ctx, "llm", time.Now(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.TimeProvider(ctx, "llm", time.Now(), boom); !errors.Is(err, boom) {
		t.Fatalf("error not passed through: %v", err)
	}

	rm := collect(t, reader)
	if v, _ := sumWhere(t, rm, "callsight.provider.requests", "status", StatusFailed); v != 1 {
		t.Errorf("failed requests = %d, want 1", v)
	}
	if v, _ := sumWhere(t, rm, "callsight.provider.requests", "status", StatusOK); v != 1 {
		t.Errorf("ok requests = %d, want 1", v)
	}
	if v, _ := sumWhere(t, rm, "callsight.provider.errors", "kind", "llm"); v != 1 {
		t.Errorf("provider errors = %d, want 1", v)
	}
}
