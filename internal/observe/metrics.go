// Package observe provides application-wide observability primitives for
// quintet: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all quintet metrics.
const meterName = "github.com/thierryishimwe250/quintet"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// SessionDuration tracks the wall-clock length of live voice sessions.
	SessionDuration metric.Float64Histogram

	// VideoWaitDuration tracks how long video operations take to finish.
	VideoWaitDuration metric.Float64Histogram

	// CapturedFrames counts microphone frames sent upstream.
	CapturedFrames metric.Int64Counter

	// PlaybackChunks counts synthesised audio chunks scheduled for playback.
	PlaybackChunks metric.Int64Counter

	// Interruptions counts barge-in interruptions during live sessions.
	Interruptions metric.Int64Counter

	// DecodeErrors counts malformed audio chunks dropped by the scheduler.
	DecodeErrors metric.Int64Counter

	// ModeRequests counts generation requests by mode. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("status", ...)
	ModeRequests metric.Int64Counter

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// both sub-second audio path latencies and minute-scale video waits.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionDuration, err = m.Float64Histogram("quintet.session.duration",
		metric.WithDescription("Wall-clock length of live voice sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VideoWaitDuration, err = m.Float64Histogram("quintet.video.wait.duration",
		metric.WithDescription("Time from video request to finished operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CapturedFrames, err = m.Int64Counter("quintet.audio.captured_frames",
		metric.WithDescription("Total microphone frames sent upstream."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackChunks, err = m.Int64Counter("quintet.audio.playback_chunks",
		metric.WithDescription("Total synthesised audio chunks scheduled for playback."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("quintet.audio.interruptions",
		metric.WithDescription("Total barge-in interruptions during live sessions."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("quintet.audio.decode_errors",
		metric.WithDescription("Total malformed audio chunks dropped."),
	); err != nil {
		return nil, err
	}
	if met.ModeRequests, err = m.Int64Counter("quintet.mode.requests",
		metric.WithDescription("Total generation requests by mode and status."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("quintet.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("quintet.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// RecordModeRequest records a generation request counter increment with the
// standard attribute set.
func (m *Metrics) RecordModeRequest(ctx context.Context, mode, status string) {
	m.ModeRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}
