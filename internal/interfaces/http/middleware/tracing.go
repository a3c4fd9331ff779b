// Package middleware provides HTTP middleware for the order service.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs copied from headers into spans.
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "ordercore-backend",
		Enabled:     true,
	}
}

// Tracing returns tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin so each request gets a span named
// "METHOD route_pattern", then annotates the finished span with the
// request id and store id seen by the rest of the chain.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	base := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		// otelgin runs the rest of the chain, so by the time it returns
		// the store and request-id middlewares have populated the context
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := traceRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if storeID := traceStoreID(c); storeID != "" {
		span.SetAttributes(attribute.String("store_id", storeID))
	}
}

// traceRequestID prefers the id minted by the RequestID middleware and
// falls back to the header, truncated so oversized values cannot bloat
// the span.
func traceRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// traceStoreID prefers the store resolved by the store middleware. Raw
// header values are only accepted when they parse as a UUID, so arbitrary
// strings cannot be injected into trace attributes.
func traceStoreID(c *gin.Context) string {
	if storeID := GetStoreID(c); storeID != "" {
		return storeID
	}
	headerStoreID := c.GetHeader(StoreHeaderKey)
	if _, err := uuid.Parse(headerStoreID); err != nil {
		return ""
	}
	return headerStoreID
}

// SpanErrorMarker marks spans of 4xx/5xx responses with error status.
// Place it after the tracing middleware in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		message := http.StatusText(statusCode)
		if message == "" {
			message = "Client Error"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}
