package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"badgekit/internal/contextutils"
	"badgekit/internal/response"
	"badgekit/internal/services"
	"badgekit/internal/utils/appinfo"

	"go.uber.org/zap"
)

// ===============================
// RECOVERY CONFIGURATION
// ===============================

// RecoveryConfig holds configuration for panic recovery middleware
type RecoveryConfig struct {
	EnableStackTrace bool `json:"enable_stack_trace"`
	MaxStackFrames   int  `json:"max_stack_frames"`
}

// DefaultRecoveryConfig returns production-ready recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		EnableStackTrace: true,
		MaxStackFrames:   20,
	}
}

// PanicInfo contains information about a panic
type PanicInfo struct {
	Timestamp   time.Time    `json:"timestamp"`
	RequestID   string       `json:"request_id"`
	Error       interface{}  `json:"error"`
	StackTrace  []StackFrame `json:"stack_trace,omitempty"`
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	RemoteAddr  string       `json:"remote_addr"`
	Environment string       `json:"environment"`
	Version     string       `json:"version,omitempty"`
}

// StackFrame represents a single stack frame
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// ===============================
// RECOVERY MIDDLEWARE
// ===============================

// Recovery turns a panic in a handler into a logged 500 response
func Recovery(config *RecoveryConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				info := capturePanicInfo(rec, r, config)
				logPanic(contextutils.GetLogger(r.Context(), logger), info)

				response.QuickError(w, r, services.NewInternalError("internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// capturePanicInfo captures information about a panic
func capturePanicInfo(rec interface{}, r *http.Request, config *RecoveryConfig) *PanicInfo {
	info := &PanicInfo{
		Timestamp:   time.Now(),
		RequestID:   contextutils.GetRequestID(r.Context()),
		Error:       rec,
		Method:      r.Method,
		URL:         r.URL.String(),
		RemoteAddr:  getClientIP(r),
		Environment: appinfo.GetEnvironment(),
		Version:     appinfo.GetVersion(),
	}

	if config.EnableStackTrace {
		info.StackTrace = captureStackTrace(config.MaxStackFrames)
	}

	return info
}

// captureStackTrace captures the stack trace, skipping runtime frames
func captureStackTrace(maxFrames int) []StackFrame {
	pcs := make([]uintptr, maxFrames+3)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return nil
	}

	frames := make([]StackFrame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])
	for len(frames) < maxFrames {
		frame, more := callersFrames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			frames = append(frames, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}

	return frames
}

func logPanic(logger *zap.Logger, info *PanicInfo) {
	fields := []zap.Field{
		zap.String("panic", fmt.Sprint(info.Error)),
		zap.String("panic_type", fmt.Sprintf("%T", info.Error)),
		zap.String("request_id", info.RequestID),
		zap.String("url", info.URL),
		zap.String("remote_addr", info.RemoteAddr),
		zap.String("environment", info.Environment),
		zap.String("version", info.Version),
	}
	if len(info.StackTrace) > 0 {
		top := info.StackTrace[0]
		fields = append(fields,
			zap.String("panic_location", fmt.Sprintf("%s:%d", top.File, top.Line)),
			zap.Any("stack_trace", info.StackTrace),
		)
	}

	logger.Error("Panic recovered", fields...)
}
