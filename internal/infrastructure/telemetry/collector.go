// Package telemetry wires OpenTelemetry tracing, metrics and the zap log
// bridge. Every provider degrades to the global no-op when disabled.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is reported on every exported resource
const ServiceVersion = "1.0.0"

// shutdownTimeout caps how long a provider may spend flushing on exit
const shutdownTimeout = 10 * time.Second

// Collector is the OTLP endpoint that traces, metrics and logs share
type Collector struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Environment string
}

// resource describes this process to the collector
func (c Collector) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	}
	if c.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", c.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdown runs stop under shutdownTimeout
func shutdown(ctx context.Context, signal string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}
