package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestCounterIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.DecodeErrors.Add(ctx, 1)
	m.DecodeErrors.Add(ctx, 2)

	rm := collect(t, reader)
	found := findMetric(rm, "quintet.audio.decode_errors")
	if found == nil {
		t.Fatal("quintet.audio.decode_errors not collected")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("data type = %T, want Sum[int64]", found.Data)
	}
	if got := sum.DataPoints[0].Value; got != 3 {
		t.Errorf("value = %d, want 3", got)
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionDuration.Record(ctx, 12.5)

	rm := collect(t, reader)
	found := findMetric(rm, "quintet.session.duration")
	if found == nil {
		t.Fatal("quintet.session.duration not collected")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data type = %T, want Histogram[float64]", found.Data)
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestRecordModeRequestAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordModeRequest(ctx, "image", "ok")
	m.RecordModeRequest(ctx, "image", "error")

	rm := collect(t, reader)
	found := findMetric(rm, "quintet.mode.requests")
	if found == nil {
		t.Fatal("quintet.mode.requests not collected")
	}
	sum := found.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Fatalf("data points = %d, want 2 (one per attribute set)", len(sum.DataPoints))
	}
	for _, dp := range sum.DataPoints {
		mode, _ := dp.Attributes.Value(attribute.Key("mode"))
		if mode.AsString() != "image" {
			t.Errorf("mode attribute = %q, want image", mode.AsString())
		}
	}
}

func TestActiveSessionsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	found := findMetric(rm, "quintet.active_sessions")
	if found == nil {
		t.Fatal("quintet.active_sessions not collected")
	}
	sum := found.Data.(metricdata.Sum[int64])
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("value = %d, want 1", got)
	}
}
