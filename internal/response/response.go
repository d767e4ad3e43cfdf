package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"badgekit/internal/contextutils"
	"badgekit/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE CONFIGURATION
// ===============================

// Config holds configuration for the response system
type Config struct {
	// Response formatting
	PrettyJSON       bool   `json:"pretty_json"`
	IncludeRequestID bool   `json:"include_request_id"`
	IncludeTimestamp bool   `json:"include_timestamp"`
	IncludeVersion   bool   `json:"include_version"`
	APIVersion       string `json:"api_version"`

	// Error handling
	MaskInternalErrors bool `json:"mask_internal_errors"`
}

// DefaultConfig returns production-ready response configuration
func DefaultConfig() *Config {
	return &Config{
		PrettyJSON:         false,
		IncludeRequestID:   true,
		IncludeTimestamp:   true,
		IncludeVersion:     true,
		APIVersion:         "v1",
		MaskInternalErrors: true,
	}
}

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Version   string       `json:"version,omitempty"`
}

// ErrorDetail represents error information in API responses
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Step    string                 `json:"step,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder helps construct standardized responses
type Builder struct {
	config *Config
	logger *zap.Logger
}

// NewBuilder creates a new response builder
func NewBuilder(config *Config, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		config: config,
		logger: logger,
	}
}

// Success creates a successful API response
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.getVersion(),
	}
}

// Error creates an error response from a service error
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	errorDetail := b.convertError(err)

	b.logError(ctx, err, errorDetail)

	return &APIResponse{
		Success:   false,
		Error:     errorDetail,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.getVersion(),
	}
}

// ===============================
// HTTP RESPONSE WRITERS
// ===============================

// WriteJSON writes a JSON response with appropriate headers
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, response *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if statusCode >= 400 {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}

	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if b.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(response); err != nil {
		b.logger.Error("Failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a successful JSON response
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteCreated writes a successful creation response
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusCreated)
}

// WriteError writes an error response with the status code of its type
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	b.WriteJSON(w, r, b.Error(r.Context(), err), b.getStatusCodeFromError(err))
}

// WriteBadRequest writes a validation error without a service error behind it
func (b *Builder) WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	b.WriteError(w, r, services.NewValidationError(message, nil))
}

// ===============================
// UTILITY METHODS
// ===============================

// convertError converts service errors to ErrorDetail
func (b *Builder) convertError(err error) *ErrorDetail {
	serviceErr := services.GetServiceError(err)
	if serviceErr == nil {
		return nil
	}

	detail := &ErrorDetail{
		Type:    serviceErr.Type,
		Message: serviceErr.Message,
		Code:    serviceErr.Code,
		Step:    serviceErr.Step(),
		Details: serviceErr.Details,
	}

	// Mask internal errors in production
	if b.config.MaskInternalErrors && serviceErr.Type == services.ErrorTypeInternal {
		detail.Message = "An internal error occurred"
		detail.Details = nil
	}

	return detail
}

func (b *Builder) getStatusCodeFromError(err error) int {
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		return serviceErr.GetStatusCode()
	}
	return http.StatusInternalServerError
}

func (b *Builder) getRequestID(ctx context.Context) string {
	if !b.config.IncludeRequestID {
		return ""
	}
	return contextutils.GetRequestID(ctx)
}

func (b *Builder) getTimestamp() int64 {
	if !b.config.IncludeTimestamp {
		return 0
	}
	return time.Now().Unix()
}

func (b *Builder) getVersion() string {
	if !b.config.IncludeVersion {
		return ""
	}
	return b.config.APIVersion
}

// logError logs error information at a level matching the error type
func (b *Builder) logError(ctx context.Context, err error, errorDetail *ErrorDetail) {
	fields := []zap.Field{
		zap.String("request_id", contextutils.GetRequestID(ctx)),
		zap.String("error_type", errorDetail.Type),
		zap.String("error_message", errorDetail.Message),
		zap.String("step", errorDetail.Step),
	}

	switch errorDetail.Type {
	case services.ErrorTypeValidation, services.ErrorTypeNotFound:
		b.logger.Warn("Request error", fields...)
	case services.ErrorTypeUpstreamRejected, services.ErrorTypeUpstreamUnavailable:
		b.logger.Warn("Issuing service error", append(fields, zap.Error(err))...)
	case services.ErrorTypeNotImplemented:
		b.logger.Info("Request completed with error", fields...)
	default:
		b.logger.Error("Internal error", append(fields, zap.Error(err))...)
	}
}

// ===============================
// CONTEXT HELPERS
// ===============================

type builderKey struct{}

// GetBuilder extracts response builder from context, or nil
func GetBuilder(ctx context.Context) *Builder {
	builder, _ := ctx.Value(builderKey{}).(*Builder)
	return builder
}

// SetBuilder stores response builder in context
func SetBuilder(ctx context.Context, builder *Builder) context.Context {
	return context.WithValue(ctx, builderKey{}, builder)
}

// QuickError writes err with the builder from the request context, falling
// back to a default builder
func QuickError(w http.ResponseWriter, r *http.Request, err error) {
	builder := GetBuilder(r.Context())
	if builder == nil {
		builder = NewBuilder(DefaultConfig(), zap.NewNop())
	}
	builder.WriteError(w, r, err)
}

// Middleware creates response builder middleware
func Middleware(builder *Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := SetBuilder(r.Context(), builder)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
