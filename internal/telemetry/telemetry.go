package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mark-c-hall/swapi-characters/internal/config"
)

type ShutdownFunc func(context.Context) error

// Options tunes where telemetry goes. A nil Registerer leaves metrics
// unexported; a nil TraceWriter sends stdout traces to stderr so they never
// mix with program output.
type Options struct {
	Registerer  prometheus.Registerer
	TraceWriter io.Writer
}

// Setup installs the global tracer and meter providers. The returned shutdown
// flushes and stops every exporter that was started.
func Setup(ctx context.Context, cfg config.TelemetryConfig, opts Options) (ShutdownFunc, error) {
	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("error building telemetry resource: %w", err)
	}

	traceExporter, err := newTraceExporter(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if traceExporter != nil {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if opts.Registerer != nil {
		exporter, err := otelprom.New(otelprom.WithRegisterer(opts.Registerer))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("error creating prometheus exporter: %w", err), shutdown(ctx))
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return shutdown, nil
}

func newTraceExporter(ctx context.Context, cfg config.TelemetryConfig, opts Options) (sdktrace.SpanExporter, error) {
	switch cfg.TracesExporter {
	case "stdout":
		w := opts.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("error creating stdout trace exporter: %w", err)
		}
		return exporter, nil
	case "otlp":
		var options []otlptracehttp.Option
		if cfg.OTLPEndpoint != "" {
			options = append(options, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		exporter, err := otlptracehttp.New(ctx, options...)
		if err != nil {
			return nil, fmt.Errorf("error creating otlp trace exporter: %w", err)
		}
		return exporter, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown traces exporter %q", cfg.TracesExporter)
	}
}
