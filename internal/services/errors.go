package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// Error type identifiers surfaced to callers of badge transitions
const (
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypePersistence         = "PERSISTENCE_ERROR"
	ErrorTypeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrorTypeUpstreamRejected    = "UPSTREAM_REJECTED"
	ErrorTypePartialWrite        = "PARTIAL_WRITE_FAILURE"
	ErrorTypeValidation          = "VALIDATION_ERROR"
	ErrorTypeNotImplemented      = "NOT_IMPLEMENTED"
	ErrorTypeInternal            = "INTERNAL_ERROR"
)

// Transition steps recorded in ServiceError.Details["step"]
const (
	StepPersist       = "persist"
	StepRefetch       = "refetch"
	StepCriteria      = "criteria"
	StepImage         = "image"
	StepRemoteFetch   = "remote_fetch"
	StepRemoteCreate  = "remote_create"
	StepRemoteUpdate  = "remote_update"
	StepMarkPublished = "mark_published"
	StepImageMirror   = "image_mirror"
	StepInsertCopy    = "insert_copy"
	StepGrantAward    = "grant_award"
)

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Step returns the transition step that failed, if recorded
func (e *ServiceError) Step() string {
	step, _ := e.Details["step"].(string)
	return step
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewPersistenceError wraps a failed draft store write or read
func NewPersistenceError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypePersistence,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewUpstreamUnavailableError wraps a failed read from the issuing service
func NewUpstreamUnavailableError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeUpstreamUnavailable,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewUpstreamRejectedError wraps a write the issuing service refused
func NewUpstreamRejectedError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeUpstreamRejected,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewPartialWriteError reports a save whose concurrent sub-writes did not
// all complete. Writes that did complete are kept.
func NewPartialWriteError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypePartialWrite,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewNotImplementedError creates a not implemented error
func NewNotImplementedError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeNotImplemented,
		Message:    message,
		StatusCode: http.StatusNotImplemented,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error chain, or wraps the
// error in a generic internal one
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	internal := NewInternalError(err.Error())
	internal.Cause = err
	return internal
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Type == errorType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsErrorType(err, ErrorTypeValidation)
}

// ===============================
// ERROR CONTEXT
// ===============================

// ErrorContext provides additional context for errors
type ErrorContext struct {
	Operation string                 `json:"operation,omitempty"`
	Step      string                 `json:"step,omitempty"`
	BadgeID   int64                  `json:"badge_id,omitempty"`
	Slug      string                 `json:"slug,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// WithContext adds context to a service error
func (e *ServiceError) WithContext(ctx *ErrorContext) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}

	if ctx.Operation != "" {
		e.Details["operation"] = ctx.Operation
	}
	if ctx.Step != "" {
		e.Details["step"] = ctx.Step
	}
	if ctx.BadgeID != 0 {
		e.Details["badge_id"] = ctx.BadgeID
	}
	if ctx.Slug != "" {
		e.Details["slug"] = ctx.Slug
	}
	for k, v := range ctx.Metadata {
		e.Details[k] = v
	}

	return e
}

// ===============================
// COMMON ERROR PATTERNS
// ===============================

// BadgeNotFoundError creates the standard missing badge error
func BadgeNotFoundError(id interface{}) *ServiceError {
	return NewNotFoundError("badge not found").WithContext(&ErrorContext{
		Metadata: map[string]interface{}{
			"id": id,
		},
	})
}

// InvalidInputError creates a standard invalid input error
func InvalidInputError(field, reason string) *ServiceError {
	return NewValidationError(fmt.Sprintf("Invalid input for field '%s': %s", field, reason), nil).WithContext(&ErrorContext{
		Metadata: map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	})
}
