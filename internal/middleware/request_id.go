package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"badgekit/internal/contextutils"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ContextKey type for context keys to avoid conflicts
type ContextKey string

// RequestStartKey is the context key for request start time
const RequestStartKey ContextKey = "request_start"

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// RequestID reuses an incoming correlation ID or generates one, and installs
// a request-scoped logger carrying it
func RequestID(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = r.Header.Get(HeaderXCorrelationID)
			}
			if requestID == "" {
				if id, err := uuid.NewV4(); err == nil {
					requestID = id.String()
				} else {
					requestID = "req_" + start.Format("20060102150405.000000")
				}
			}

			w.Header().Set(HeaderXRequestID, requestID)

			requestLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", getClientIP(r)),
			)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			ctx = contextutils.WithLogger(ctx, requestLogger)
			ctx = context.WithValue(ctx, RequestStartKey, start)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestLogger extracts the request-scoped logger from context
func GetRequestLogger(ctx context.Context) *zap.Logger {
	return contextutils.GetLogger(ctx, zap.NewNop())
}

// GetRequestStart extracts the request start time from context
func GetRequestStart(ctx context.Context) time.Time {
	if start, ok := ctx.Value(RequestStartKey).(time.Time); ok {
		return start
	}
	return time.Now()
}

// getClientIP extracts the real client IP address
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can be "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(client)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
