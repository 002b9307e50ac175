package tracing

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

// Config controls trace export
type Config struct {
	Enabled     bool
	ServiceName string
	OTLP        exporters.OTLPConfig
}

// Setup installs a tracer provider exporting over OTLP. The returned shutdown
// flushes pending spans. When tracing is disabled shutdown is a no-op.
func Setup(ctx context.Context, cfg Config, logger ectologger.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, cfg.OTLP)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	SetTracer(provider.Tracer(cfg.ServiceName))

	logger.Infof("Tracing enabled, exporting to %s over %s", cfg.OTLP.Endpoint, cfg.OTLP.Protocol)

	return provider.Shutdown, nil
}
