package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// State cache errors
const (
	// ErrCodeInitializationFailed indicates loading durable state into memory failed.
	ErrCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"
	// ErrCodePersistenceFailed indicates a durable write or erase failed.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// ErrCodeSubscriberFailed indicates a change handler panicked. It is logged, never returned to writers.
	ErrCodeSubscriberFailed ErrorCode = "SUBSCRIBER_FAILED"
	// ErrCodeNotReady indicates the cache has not finished initializing.
	ErrCodeNotReady ErrorCode = "NOT_READY"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnknownField indicates a field name that is not part of the schema.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"
)

// Access errors
const (
	// ErrCodeUnauthorized indicates a missing or invalid bearer token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Resource and availability errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConnectionFailed indicates a failed connection to a backing store.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the caller stopped waiting.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeInitializationFailed: true,
	ErrCodePersistenceFailed:    true,
	ErrCodeNotReady:             true,
	ErrCodeConnectionFailed:     true,
	ErrCodeServiceUnavailable:   true,
	ErrCodeTimeout:              true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
