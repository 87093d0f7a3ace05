package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified error type of the client.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the closest HTTP status for this error.
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

// InvalidManifest reports a missing or malformed manifest. value is rendered
// verbatim, so a nil manifest reads "invalid manifest (<nil>)".
func InvalidManifest(value any) *AppError {
	return &AppError{
		Code: ErrCodeInvalidManifest, Message: fmt.Sprintf("invalid manifest (%v)", value),
		HTTPStatus: http.StatusBadRequest,
	}
}

// GatewayNotConfigured reports a missing gateway factory.
func GatewayNotConfigured() *AppError {
	return &AppError{
		Code: ErrCodeGatewayNotConfigured, Message: "gateway class not configured",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// InfiniteLoop reports a middleware stack that renewed past the configured bound.
func InfiniteLoop(executions int) *AppError {
	return &AppError{
		Code: ErrCodeInfiniteLoop,
		Message: fmt.Sprintf("infinite loop detected (middleware stack invoked %d times). "+
			"Check the use of \"renew\" in one of the middleware.", executions),
		HTTPStatus: http.StatusLoopDetected,
		Details:    map[string]any{"executions": executions},
	}
}

// NotFound reports an unknown resource or method name.
func NotFound(kind, name string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q is not defined in the manifest", kind, name),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"kind": kind, "name": name},
	}
}

// InvalidInput reports invalid call-time input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Timeout reports a request that did not complete in time.
func Timeout(url string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("request to %s timed out", url),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"url": url}, Cause: cause,
	}
}

// ConnectionFailed reports a transport-level failure reaching the remote host.
func ConnectionFailed(url string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("unable to reach %s", url),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"url": url}, Cause: cause,
	}
}

// RateLimited reports a call rejected by a local rate limiter.
func RateLimited(name string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: fmt.Sprintf("rate limit exceeded for %s", name),
		HTTPStatus: http.StatusTooManyRequests, Retryable: true, Cause: cause,
	}
}

// ServiceUnavailable reports a call rejected by an open circuit breaker or a
// full bulkhead.
func ServiceUnavailable(name string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("the %s gateway is temporarily unavailable", name),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"gateway": name},
	}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRetryable reports whether err is, or wraps, a retryable AppError.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
