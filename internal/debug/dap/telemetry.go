package dap

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for protocol operations.
var (
	tracer = otel.Tracer("tracedbg.dap")
	meter  = otel.Meter("tracedbg.dap")
)

// Metrics for protocol operations.
var (
	requestLatency metric.Float64Histogram
	requestTotal   metric.Int64Counter
	stepsTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		requestLatency, err = meter.Float64Histogram(
			"dap_request_duration_seconds",
			metric.WithDescription("Duration of DAP request handling"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		requestTotal, err = meter.Int64Counter(
			"dap_requests_total",
			metric.WithDescription("Total number of DAP requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stepsTotal, err = meter.Int64Counter(
			"dap_instructions_stepped_total",
			metric.WithDescription("Total number of trace instructions applied or unapplied"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRequestSpan creates a span for one request.
func startRequestSpan(ctx context.Context, req *Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "dap."+req.Command,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("dap.command", req.Command),
			attribute.Int("dap.seq", req.Seq),
		),
	)
}

// setRequestSpanResult records the outcome of a request on its span.
func setRequestSpanResult(span trace.Span, err error) {
	span.SetAttributes(attribute.Bool("dap.success", err == nil))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// recordRequestMetrics records metrics for one request.
func recordRequestMetrics(ctx context.Context, command string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("success", success),
	)

	requestLatency.Record(ctx, duration.Seconds(), attrs)
	requestTotal.Add(ctx, 1, attrs)
}

// RecordSteps records the instructions moved over by a run command and
// annotates the request span.
func RecordSteps(ctx context.Context, direction string, steps int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("engine.direction", direction),
		attribute.Int("engine.steps", steps),
	)

	if err := initMetrics(); err != nil {
		return
	}
	stepsTotal.Add(ctx, int64(steps), metric.WithAttributes(
		attribute.String("direction", direction),
	))
}
