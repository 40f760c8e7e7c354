// Package telemetry wraps Blue Crab's public operations in OpenTelemetry
// spans and metrics: a package-scoped tracer/meter, with counters and
// histograms recorded around each operation. It wires the stdout
// exporters directly (no network, no server) — the instrumentation
// itself is still real, not a stub.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/bluecrabdb/bluecrab"

var tracer = otel.Tracer(instrumentationName)

var instruments struct {
	opCount    metric.Int64Counter
	opDuration metric.Float64Histogram
}

func init() {
	m := otel.Meter(instrumentationName)
	instruments.opCount, _ = m.Int64Counter("bluecrab.op.count",
		metric.WithDescription("Database operations executed"),
		metric.WithUnit("{operation}"),
	)
	instruments.opDuration, _ = m.Float64Histogram("bluecrab.op.duration_ms",
		metric.WithDescription("Database operation latency"),
		metric.WithUnit("ms"),
	)
}

// Span opens a span named "bluecrab.<op>" and returns a finish function
// that records the operation's outcome: it stops the span (marking it
// errored if err is non-nil), increments the operation counter with an
// "op"/"outcome" attribute pair, and records the latency histogram.
// Callers defer the returned func, passing the named error return:
//
//	ctx, end := telemetry.Span(ctx, "commit")
//	defer func() { end(err) }()
func Span(ctx context.Context, op string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "bluecrab."+op)
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()

		attrs := attribute.NewSet(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		)
		instruments.opCount.Add(ctx, 1, metric.WithAttributeSet(attrs))
		instruments.opDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, metric.WithAttributeSet(attrs))
	}
}

// NoopSpan returns a context and a finish function that does nothing,
// used when a Database has telemetry disabled (config.Options.TelemetryEnabled
// == false) so call sites don't need a conditional around every Span call.
func NoopSpan(ctx context.Context) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

// SpanIf calls Span when enabled is true, NoopSpan otherwise.
func SpanIf(ctx context.Context, enabled bool, op string) (context.Context, func(err error)) {
	if !enabled {
		return NoopSpan(ctx)
	}
	return Span(ctx, op)
}
