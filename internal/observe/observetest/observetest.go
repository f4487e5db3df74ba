// Package observetest provides helpers for asserting on observe.Metrics in
// tests of other packages.
package observetest

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/callsight/internal/observe"
)

// Reader wraps a ManualReader bound to a private MeterProvider.
type Reader struct {
	t      testing.TB
	reader *sdkmetric.ManualReader
}

// New returns Metrics backed by a private provider plus a Reader to inspect them.
func New(t testing.TB) (*observe.Metrics, *Reader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("observe.NewMetrics: %v", err)
	}
	return m, &Reader{t: t, reader: reader}
}

// Counter returns the summed value of the int64 counter name over data points
// carrying every given key/value attribute pair. Missing metrics count as 0.
func (r *Reader) Counter(name string, attrs ...string) int64 {
	r.t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		r.t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				r.t.Fatalf("metric %q is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				if matches(dp.Attributes.ToSlice(), attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func matches(kvs []attribute.KeyValue, want []string) bool {
	for i := 0; i+1 < len(want); i += 2 {
		found := false
		for _, kv := range kvs {
			if string(kv.Key) == want[i] && kv.Value.Emit() == want[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
