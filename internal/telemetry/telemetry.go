// Package telemetry installs the OpenTelemetry tracer and meter providers for
// tracedbg.
//
// Instrumented packages use otel.Tracer and otel.Meter directly. Without Init
// the global no-op providers are in effect.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrNilWriter is returned when telemetry is enabled without a writer.
var ErrNilWriter = errors.New("telemetry: nil writer")

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in exported spans and metrics.
	ServiceName string
	// ServiceVersion is the version string for this process.
	ServiceVersion string
	// Writer receives spans and metrics as JSON.
	Writer io.Writer
	// PrettyPrint indents exported records.
	PrettyPrint bool
	// MetricReaders are attached to the meter provider next to the
	// periodic reader exporting to Writer.
	MetricReaders []sdkmetric.Reader
}

// Init installs a tracer provider and a meter provider exporting to
// cfg.Writer and returns the function that flushes and uninstalls them.
// Shutdown must be called.
func Init(cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Writer == nil {
		return nil, ErrNilWriter
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp, err := initTracer(cfg, res)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	mp, err := initMeter(cfg, res)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, fmt.Errorf("init meter: %w", err)
	}

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)

		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
		return errors.Join(errs...)
	}, nil
}

func initTracer(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(cfg.Writer)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func initMeter(cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []stdoutmetric.Option{stdoutmetric.WithWriter(cfg.Writer)}
	if cfg.PrettyPrint {
		opts = append(opts, stdoutmetric.WithPrettyPrint())
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	mopts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	}
	for _, r := range cfg.MetricReaders {
		mopts = append(mopts, sdkmetric.WithReader(r))
	}
	return sdkmetric.NewMeterProvider(mopts...), nil
}
