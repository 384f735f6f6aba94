package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Node failure taxonomy.
const (
	// ErrCodeConfiguration indicates a malformed or incomplete node configuration.
	// It is the only code that is fatal: the node refuses to start.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeResolutionFailed indicates a dependency could not be mapped to an address.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	// ErrCodeDownstreamFailure indicates a dependency call failed or returned garbage.
	ErrCodeDownstreamFailure ErrorCode = "DOWNSTREAM_FAILURE"
	// ErrCodeHandlerFailure indicates an unexpected failure while composing a response.
	ErrCodeHandlerFailure ErrorCode = "HANDLER_FAILURE"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Validation errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeDownstreamFailure:  true,
	ErrCodeResolutionFailed:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
