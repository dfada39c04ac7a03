package jaeger

import (
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/config"
	"go.opentelemetry.io/otel/exporters/jaeger"
)

// DefaultEndpoint is the collector of the docker-compose setup.
const DefaultEndpoint = "http://jaeger:14268/api/traces"

// NewExporter creates a span exporter pointed at the configured collector.
func NewExporter(cfg config.TracingConfig) (*jaeger.Exporter, error) {
	endpoint := cfg.JaegerEndpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	return exp, nil
}

func MustNewExporter(cfg config.TracingConfig) *jaeger.Exporter {
	exp, err := NewExporter(cfg)
	if err != nil {
		panic(err)
	}

	return exp
}
