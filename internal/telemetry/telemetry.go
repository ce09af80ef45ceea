// Package telemetry sets up OpenTelemetry tracing for coach turns.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const serviceName = "smart-coach"

// Config holds the configuration for telemetry
type Config struct {
	Enabled bool
	// Endpoint is the OTLP/HTTP collector URL, e.g. http://localhost:4318. Empty uses the exporter's environment
	// defaults
	Endpoint       string
	ServiceVersion string
}

// Provider owns the tracer provider for the process
type Provider struct {
	tp     *sdktrace.TracerProvider // nil when disabled
	tracer trace.Tracer
	logger *zap.Logger
}

// NewProvider creates a new telemetry provider. A disabled provider hands out a no-op tracer
func NewProvider(ctx context.Context, config Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !config.Enabled {
		logger.Debug("telemetry disabled")
		return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName), logger: logger}, nil
	}

	var opts []otlptracehttp.Option
	if config.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(config.Endpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", config.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	logger.Info("telemetry enabled", zap.String("endpoint", config.Endpoint))
	return &Provider{tp: tp, tracer: tp.Tracer(serviceName), logger: logger}, nil
}

// NewProviderFromTracerProvider wraps an existing SDK tracer provider
func NewProviderFromTracerProvider(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{tp: tp, tracer: tp.Tracer(serviceName), logger: zap.NewNop()}
}

// Tracer returns the tracer used for coach spans
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans and shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	p.logger.Debug("shutting down telemetry provider")
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
