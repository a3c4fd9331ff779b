package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ordercore/backend/internal/infrastructure/telemetry"
)

func newDisabledProvider(t *testing.T) *telemetry.TracerProvider {
	t.Helper()
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "ordercore-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return tp
}

func TestNewTracerProviderDisabled(t *testing.T) {
	tp := newDisabledProvider(t)

	assert.False(t, tp.IsEnabled())

	cfg := tp.GetConfig()
	assert.Equal(t, "ordercore-test", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
}

func TestDisabledProviderIsNoOp(t *testing.T) {
	tp := newDisabledProvider(t)
	ctx := context.Background()

	// falls back to the global tracer and spans still work
	tracer := tp.Tracer("order-service")
	require.NotNil(t, tracer)
	_, span := tracer.Start(ctx, "order.create")
	span.End()

	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestDisabledProviderShutdownIgnoresContext(t *testing.T) {
	tp := newDisabledProvider(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, tp.Shutdown(cancelled))
}

func TestNewTracerProviderEnabled(t *testing.T) {
	// needs a reachable OTLP collector
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "ordercore-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("order-service").Start(ctx, "order.create")
	span.End()

	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}
