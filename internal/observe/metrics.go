// Package observe provides application-wide observability primitives for
// Dinle: OpenTelemetry metrics, tracing helpers, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the control server's /metrics endpoint. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Dinle metrics.
const meterName = "github.com/bkaraca/dinle"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Interaction pipeline ---

	// Utterances counts processed utterances. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	// where command is the resolved command name ("sohbet" for the chat
	// fallback) and status is "ok" or "error".
	Utterances metric.Int64Counter

	// CommandLatency tracks command execution latency in milliseconds by
	// command name.
	CommandLatency metric.Float64Histogram

	// RecognizeRetries counts transparent no-speech retries of the
	// recognition loop.
	RecognizeRetries metric.Int64Counter

	// SpeechSeconds tracks the playback duration of spoken responses.
	SpeechSeconds metric.Float64Histogram

	// SessionState reports the current session state as its numeric value
	// (0 Idle, 1 Listening, 2 Processing, 3 Speaking).
	SessionState metric.Int64Gauge

	// --- Providers ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...),
	//   attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks control-server request processing time. Use
	// with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// commandLatencyBuckets defines histogram bucket boundaries (in
// milliseconds) covering everything from a clock read to a slow chat
// completion.
var commandLatencyBuckets = []float64{
	10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000,
}

// speechBuckets defines histogram bucket boundaries (in seconds) for spoken
// response durations.
var speechBuckets = []float64{
	0.25, 0.5, 1, 2, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Utterances, err = m.Int64Counter("dinle_utterances_total",
		metric.WithDescription("Total processed utterances by command and status."),
	); err != nil {
		return nil, err
	}
	if met.CommandLatency, err = m.Float64Histogram("dinle_command_latency_ms",
		metric.WithDescription("Command execution latency by command name."),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(commandLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognizeRetries, err = m.Int64Counter("dinle_recognize_retries_total",
		metric.WithDescription("Total transparent no-speech retries of the recognition loop."),
	); err != nil {
		return nil, err
	}
	if met.SpeechSeconds, err = m.Float64Histogram("dinle_speech_seconds",
		metric.WithDescription("Playback duration of spoken responses."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionState, err = m.Int64Gauge("dinle_session_state",
		metric.WithDescription("Current session state (0 Idle, 1 Listening, 2 Processing, 3 Speaking)."),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("dinle_provider_requests_total",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("dinle_provider_errors_total",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("dinle_http_request_duration_seconds",
		metric.WithDescription("Control server request latency by method and path."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordUtterance records one processed utterance with its resolved command
// name and outcome status ("ok" or "error").
func (m *Metrics) RecordUtterance(ctx context.Context, command, status string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}

// RecordCommandLatency records the execution latency of one command in
// milliseconds.
func (m *Metrics) RecordCommandLatency(ctx context.Context, command string, ms float64) {
	m.CommandLatency.Record(ctx, ms,
		metric.WithAttributes(attribute.String("command", command)),
	)
}

// RecordRecognizeRetry records one transparent no-speech retry.
func (m *Metrics) RecordRecognizeRetry(ctx context.Context) {
	m.RecognizeRetries.Add(ctx, 1)
}

// RecordSpeech records the playback duration of one spoken response.
func (m *Metrics) RecordSpeech(ctx context.Context, seconds float64) {
	m.SpeechSeconds.Record(ctx, seconds)
}

// RecordSessionState reports the current session state value.
func (m *Metrics) RecordSessionState(ctx context.Context, state int64) {
	m.SessionState.Record(ctx, state)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
