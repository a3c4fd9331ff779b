package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("noop") })
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	enriched.Info("hello")
	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithStoreID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithStoreID(context.Background(), logger, "store-1")

	assert.Equal(t, "store-1", GetStoreID(ctx))
	enriched.Info("hello")
	assert.Equal(t, "store-1", logs.All()[0].ContextMap()["store_id"])
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ctx := WithContext(context.Background(), logger)
	ctx, _ = WithRequestID(ctx, logger, "req-9")
	ctx, _ = WithStoreID(ctx, logger, "store-9")

	L(ctx).Info("entry", zap.Int("count", 1))

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "store-9", fields["store_id"])
	assert.Equal(t, int64(1), fields["count"])
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Info("ignored") })
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	logger := zap.NewNop()
	assert.Equal(t, logger, WithTraceContext(context.Background(), logger))
}
