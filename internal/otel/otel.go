package otel

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs the global tracer provider and W3C propagator.
// With tracing disabled spans are still created but never exported.
func MustInitOtel(serviceName string, cfg config.TracingConfig) *OtelController {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if cfg.Enabled {
		opts = append(opts, sdktrace.WithBatcher(jaeger.MustNewExporter(cfg)))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

func (o *OtelController) Shutdown(ctx context.Context) error {
	return o.traceProvider.Shutdown(ctx)
}
