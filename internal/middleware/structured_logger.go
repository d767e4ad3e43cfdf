package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig holds configuration for structured logging middleware
type LoggingConfig struct {
	SlowRequestThreshold time.Duration `json:"slow_request_threshold"`
	VerySlowThreshold    time.Duration `json:"very_slow_threshold"`

	// Paths logged at debug level only, such as probes and scrapes
	QuietPaths []string `json:"quiet_paths"`
}

// DefaultLoggingConfig returns production-ready logging configuration
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SlowRequestThreshold: 1 * time.Second,
		VerySlowThreshold:    5 * time.Second,
		QuietPaths:           []string{"/health", "/metrics"},
	}
}

// StructuredLogging logs each completed request on the request-scoped logger
func StructuredLogging(config *LoggingConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := GetRequestStart(r.Context())
			requestLogger := GetRequestLogger(r.Context())

			writer := newStatusRecorder(w)
			next.ServeHTTP(writer, r)

			duration := time.Since(start)
			level := completionLevel(writer.Status(), r.URL.Path, config)

			if ce := requestLogger.Check(level, "Request completed"); ce != nil {
				ce.Write(
					zap.Int("status", writer.Status()),
					zap.Duration("duration", duration),
					zap.Int64("response_size", writer.bytesWritten),
					zap.String("content_type", r.Header.Get("Content-Type")),
				)
			}

			switch {
			case duration > config.VerySlowThreshold:
				requestLogger.Error("Very slow request detected",
					zap.Duration("duration", duration),
					zap.Duration("threshold", config.VerySlowThreshold),
				)
			case duration > config.SlowRequestThreshold:
				requestLogger.Warn("Slow request detected",
					zap.Duration("duration", duration),
					zap.Duration("threshold", config.SlowRequestThreshold),
				)
			}
		})
	}
}

func completionLevel(status int, path string, config *LoggingConfig) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	}

	for _, quiet := range config.QuietPaths {
		if strings.HasPrefix(path, quiet) {
			return zapcore.DebugLevel
		}
	}
	return zapcore.InfoLevel
}

// ===============================
// STATUS RECORDER
// ===============================

// statusRecorder captures the status code and size of a response
type statusRecorder struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	written, err := w.ResponseWriter.Write(data)
	w.bytesWritten += int64(written)
	return written, err
}

// Flush passes through to the underlying writer when it supports flushing
func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Status returns the HTTP status code
func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
