package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordHTTPSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func tracedRouter(handler gin.HandlerFunc, mws ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	for _, mw := range mws {
		router.Use(mw)
	}
	router.GET("/orders", handler)
	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}
	return "", false
}

func TestTracingDisabledRecordsNothing(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, TracingWithConfig(TracingConfig{Enabled: false}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingNamesSpanAfterRoute(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, TracingWithConfig(TracingConfig{
		Enabled:     true,
		ServiceName: "ordercore-test",
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, spanNamed(sr.Ended(), "GET /orders"))
}

func TestTracingRecordsRequestID(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, Tracing(), RequestID())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	router.ServeHTTP(w, req)

	span := spanNamed(sr.Ended(), "GET /orders")
	require.NotNil(t, span)

	got, ok := spanAttr(span, "request_id")
	require.True(t, ok, "request_id attribute missing")
	assert.Equal(t, "req-abc-123", got)
}

func TestTracingRecordsStoreIDFromHeader(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, Tracing())

	storeID := "12345678-1234-1234-1234-123456789abc"
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(StoreHeaderKey, storeID)
	router.ServeHTTP(w, req)

	span := spanNamed(sr.Ended(), "GET /orders")
	require.NotNil(t, span)

	got, ok := spanAttr(span, "store_id")
	require.True(t, ok, "store_id attribute missing")
	assert.Equal(t, storeID, got)
}

func TestTracingRejectsMalformedStoreHeader(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, Tracing())

	for _, header := range []string{
		"store-1",
		"'; DROP TABLE orders;--",
		"12345678-1234-1234-1234-123456789abc-extra",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(StoreHeaderKey, header)
		router.ServeHTTP(w, req)
	}

	for _, span := range sr.Ended() {
		_, ok := spanAttr(span, "store_id")
		assert.False(t, ok, "malformed store id leaked into span attributes")
	}
}

func TestTracingTruncatesOversizedRequestID(t *testing.T) {
	sr := recordHTTPSpans(t)
	router := tracedRouter(okHandler, Tracing())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", MaxRequestIDLength*2))
	router.ServeHTTP(w, req)

	span := spanNamed(sr.Ended(), "GET /orders")
	require.NotNil(t, span)

	got, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Len(t, got, MaxRequestIDLength)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantError   bool
		description string
	}{
		{"ok", http.StatusOK, false, ""},
		{"created", http.StatusCreated, false, ""},
		{"not found", http.StatusNotFound, true, "Not Found"},
		{"unprocessable", http.StatusUnprocessableEntity, true, "Unprocessable Entity"},
		{"server error", http.StatusInternalServerError, true, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := recordHTTPSpans(t)
			router := tracedRouter(func(c *gin.Context) {
				c.Status(tt.status)
			}, Tracing(), SpanErrorMarker())

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
			router.ServeHTTP(w, req)

			span := spanNamed(sr.Ended(), "GET /orders")
			require.NotNil(t, span)

			if tt.wantError {
				assert.Equal(t, codes.Error, span.Status().Code)
				assert.Equal(t, tt.description, span.Status().Description)
			} else {
				assert.NotEqual(t, codes.Error, span.Status().Code)
			}
		})
	}
}

func TestTraceStoreIDPrefersResolvedStore(t *testing.T) {
	_ = recordHTTPSpans(t)

	var captured string
	router := tracedRouter(func(c *gin.Context) {
		c.Set(StoreIDKey, "ctx-store-id")
		captured = traceStoreID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(StoreHeaderKey, "12345678-1234-1234-1234-123456789abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, "ctx-store-id", captured)
}
