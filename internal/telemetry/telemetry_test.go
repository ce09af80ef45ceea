package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{Enabled: false}, nil)
	require.NoError(t, err)

	_, span := p.Tracer().Start(ctx, "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProvider_Enabled(t *testing.T) {
	ctx := context.Background()
	// The exporter connects lazily, so creating it needs no collector
	p, err := NewProvider(ctx, Config{Enabled: true, Endpoint: "http://127.0.0.1:4318", ServiceVersion: "test"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProviderFromTracerProvider(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	p := NewProviderFromTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := p.Tracer().Start(ctx, "coach.turn")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "coach.turn", recorder.Ended()[0].Name())
	require.NoError(t, p.Shutdown(ctx))
}
