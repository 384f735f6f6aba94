package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Node taxonomy ---

// Configuration creates the fatal startup error for a bad configuration field.
func Configuration(field, reason string) *AppError {
	details := map[string]any{}
	if field != "" {
		details["field"] = field
	}
	msg := reason
	if field != "" {
		msg = fmt.Sprintf("invalid config %q: %s", field, reason)
	}
	return &AppError{
		Code: ErrCodeConfiguration, Message: msg,
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Details: details,
	}
}

// ResolutionFailed creates an error for a dependency that has no usable address.
func ResolutionFailed(service, version string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeResolutionFailed, Message: fmt.Sprintf("unable to resolve %s[%s]", service, version),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service, "version": version}, Cause: cause,
	}
}

// DownstreamFailure creates an error for a failed call to a resolved node.
func DownstreamFailure(node string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDownstreamFailure, Message: fmt.Sprintf("error getting downstream data from %s", node),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"node": node}, Cause: cause,
	}
}

// HandlerFailure wraps anything that escaped request handling.
func HandlerFailure(cause error) *AppError {
	return &AppError{
		Code: ErrCodeHandlerFailure, Message: "unhandled failure while handling request",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Transport constructors ---

// ConnectionFailed creates a new AppError for a failed connection to a service.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to connect to %s", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "the request took too long",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Validation creates a new AppError for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
