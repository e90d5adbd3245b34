// SPDX-License-Identifier: MIT

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
	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	require.NoError(t, p.Shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "gla", ExporterType: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter type")
}

func TestNewProvider_Exporters(t *testing.T) {
	for _, exporter := range []string{"grpc", "http"} {
		t.Run(exporter, func(t *testing.T) {
			// Exporters connect lazily, so no collector is needed.
			p, err := NewProvider(context.Background(), Config{
				Enabled:      true,
				ServiceName:  "gla",
				ExporterType: exporter,
				Endpoint:     "127.0.0.1:1",
				Insecure:     true,
				SamplingRate: 0.5,
			})
			require.NoError(t, err)
			assert.True(t, p.Enabled())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestSampler(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler(0)), sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("t").Start(context.Background(), "dropped")
	span.End()
	assert.Empty(t, rec.Ended())

	tp = sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler(1)), sdktrace.WithSpanProcessor(rec))
	_, span = tp.Tracer("t").Start(context.Background(), "kept")
	span.SetAttributes(QueryKey.String("gaming"))
	span.End()
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "kept", rec.Ended()[0].Name())
}
