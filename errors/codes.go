package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Client construction errors.
const (
	// ErrCodeInvalidManifest indicates a missing or malformed manifest.
	ErrCodeInvalidManifest ErrorCode = "INVALID_MANIFEST"
	// ErrCodeGatewayNotConfigured indicates the gateway factory is absent or built nothing.
	ErrCodeGatewayNotConfigured ErrorCode = "GATEWAY_NOT_CONFIGURED"
)

// Execution errors
const (
	// ErrCodeInfiniteLoop indicates the loop guard stopped a renewing middleware stack.
	ErrCodeInfiniteLoop ErrorCode = "INFINITE_LOOP"
	// ErrCodeNotFound indicates an unknown resource or method.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates invalid call-time input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Transport errors (retryable)
const (
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConnectionFailed indicates a failed connection to the remote host.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeRateLimited indicates the gateway's local rate limit rejected the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeServiceUnavailable indicates an open circuit breaker.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrCodeInternal indicates an unexpected failure.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:            true,
	ErrCodeConnectionFailed:   true,
	ErrCodeRateLimited:        true,
	ErrCodeServiceUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
