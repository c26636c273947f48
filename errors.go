// errors.go: structured error taxonomy for arion cache operations
//
// Uses github.com/agilira/go-errors for rich error context, categorization,
// and retryability, with one ARION_* code per distinct failure mode.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for arion cache operations.
const (
	// Configuration errors (1xxx)
	ErrCodeInvalidConfig     errors.ErrorCode = "ARION_INVALID_CONFIG"
	ErrCodeInvalidMaxSize    errors.ErrorCode = "ARION_INVALID_MAX_SIZE"
	ErrCodeInvalidWeigher    errors.ErrorCode = "ARION_INVALID_WEIGHER"
	ErrCodeInvalidWindowSize errors.ErrorCode = "ARION_INVALID_WINDOW_SIZE"
	ErrCodeInvalidTTL        errors.ErrorCode = "ARION_INVALID_TTL"

	// Operation errors (2xxx)
	ErrCodeEmptyKey    errors.ErrorCode = "ARION_EMPTY_KEY"
	ErrCodeKeyNotFound errors.ErrorCode = "ARION_KEY_NOT_FOUND"

	// Loader errors (3xxx)
	ErrCodeLoaderFailed    errors.ErrorCode = "ARION_LOADER_FAILED"
	ErrCodeLoaderCancelled errors.ErrorCode = "ARION_LOADER_CANCELLED"
	ErrCodeInvalidLoader   errors.ErrorCode = "ARION_INVALID_LOADER"
	ErrCodePanicRecovered  errors.ErrorCode = "ARION_PANIC_RECOVERED"

	// Listener errors (4xxx)
	ErrCodeListenerPanic errors.ErrorCode = "ARION_LISTENER_PANIC"

	// Internal errors (5xxx)
	ErrCodeInternalError errors.ErrorCode = "ARION_INTERNAL_ERROR"
	ErrCodeShutdown      errors.ErrorCode = "ARION_SHUTDOWN"
)

const (
	msgInvalidMaxSize    = "invalid configuration: MaximumSize or MaximumWeight must be set and positive"
	msgInvalidWeigher    = "invalid configuration: MaximumWeight requires a non-nil Weigher"
	msgInvalidWindowSize = "invalid configuration: WindowRatio must be in (0, 1)"
	msgInvalidTTL        = "invalid configuration: TTL-like duration must be non-negative"
	msgEmptyKey          = "key is invalid for this operation"
	msgKeyNotFound       = "key not found in cache"
	msgLoaderFailed      = "loader function failed"
	msgLoaderCancelled   = "loader function was cancelled"
	msgInvalidLoader     = "loader function cannot be nil"
	msgPanicRecovered    = "panic recovered in cache operation"
	msgListenerPanic     = "panic recovered in event listener"
	msgInternalError     = "internal cache error"
	msgShutdown          = "cache has been shut down"
)

// NewErrInvalidMaxSize reports an invalid MaximumSize/MaximumWeight combination.
func NewErrInvalidMaxSize(maxSize int, maxWeight int64) error {
	return errors.NewWithContext(ErrCodeInvalidMaxSize, msgInvalidMaxSize, map[string]interface{}{
		"maximum_size":   maxSize,
		"maximum_weight": maxWeight,
	})
}

// NewErrInvalidWeigher reports a MaximumWeight configured without a Weigher.
func NewErrInvalidWeigher() error {
	return errors.New(ErrCodeInvalidWeigher, msgInvalidWeigher)
}

// NewErrInvalidWindowSize reports an out-of-range WindowRatio.
func NewErrInvalidWindowSize(ratio float64) error {
	return errors.NewWithContext(ErrCodeInvalidWindowSize, msgInvalidWindowSize, map[string]interface{}{
		"provided_ratio": ratio,
		"valid_range":    "0.0 < ratio < 1.0",
	})
}

// NewErrInvalidTTL reports a negative expiration/refresh duration.
func NewErrInvalidTTL() error {
	return errors.New(ErrCodeInvalidTTL, msgInvalidTTL)
}

// NewErrEmptyKey reports an operation attempted with an invalid key.
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrKeyNotFound reports a Remove/peek miss where the caller expected a value.
func NewErrKeyNotFound(key interface{}) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", fmt.Sprintf("%v", key))
}

// NewErrLoaderFailed wraps a loader's own error with cache context.
func NewErrLoaderFailed(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeLoaderFailed, msgLoaderFailed).
		WithContext("key", fmt.Sprintf("%v", key)).
		AsRetryable()
}

// NewErrLoaderCancelled reports a loader aborted by context cancellation.
func NewErrLoaderCancelled(key interface{}) error {
	return errors.NewWithField(ErrCodeLoaderCancelled, msgLoaderCancelled, "key", fmt.Sprintf("%v", key))
}

// NewErrInvalidLoader reports a nil loader function.
func NewErrInvalidLoader(key interface{}) error {
	return errors.NewWithField(ErrCodeInvalidLoader, msgInvalidLoader, "key", fmt.Sprintf("%v", key))
}

// NewErrPanicRecovered converts a recovered loader panic into a structured error.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// NewErrListenerPanic converts a recovered listener panic into a structured
// error for logging; listener failures are isolated, so it is never
// returned to a data-path caller.
func NewErrListenerPanic(event string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodeListenerPanic, msgListenerPanic, map[string]interface{}{
		"event":       event,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("warning")
}

// NewErrInternal wraps an unexpected internal condition.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// ErrShutdown builds the ARION_SHUTDOWN error. No Cache method returns it:
// after Shutdown/Close the cache keeps serving calls, without background
// maintenance.
func ErrShutdown() error {
	return errors.New(ErrCodeShutdown, msgShutdown)
}

// IsNotFound reports whether err is a key-not-found error.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeKeyNotFound)
}

// IsLoaderError reports whether err originated from a loader.
func IsLoaderError(err error) bool {
	if err == nil {
		return false
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		code := coder.ErrorCode()
		return code == ErrCodeLoaderFailed || code == ErrCodeLoaderCancelled || code == ErrCodeInvalidLoader
	}
	return false
}

// IsRetryable reports whether err can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the structured error code from err, if any.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}
