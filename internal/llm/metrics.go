package llm

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope for model metrics.
const MeterName = "github.com/FarDust/criticat/llm"

// Metrics records model usage through the global OpenTelemetry meter
// provider. Without an installed provider every recording is a no-op.
type Metrics struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	calls            metric.Int64Counter
}

// NewMetrics creates the counters. A counter that cannot be created is
// replaced by a no-op counter and a warning is logged.
func NewMetrics(meterName string) *Metrics {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	promptTokens, err := meter.Int64Counter("criticat.model.tokens.prompt",
		metric.WithDescription("Prompt tokens sent to the review model"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("cannot create prompt token counter", "error", err)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("criticat.model.tokens.completion",
		metric.WithDescription("Completion tokens returned by the review model"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("cannot create completion token counter", "error", err)
		completionTokens = noop.Int64Counter{}
	}

	calls, err := meter.Int64Counter("criticat.model.calls",
		metric.WithDescription("Calls made to the review model"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("cannot create call counter", "error", err)
		calls = noop.Int64Counter{}
	}

	return &Metrics{
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		calls:            calls,
	}
}

// RecordTokens adds token usage for one response.
func (m *Metrics) RecordTokens(ctx context.Context, model string, prompt, completion int64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.promptTokens.Add(ctx, prompt, attrs)
	m.completionTokens.Add(ctx, completion, attrs)
}

// RecordCall counts one call and whether it failed.
func (m *Metrics) RecordCall(ctx context.Context, model string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsTransient(err):
		outcome = "transient_error"
	default:
		outcome = "error"
	}
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}
