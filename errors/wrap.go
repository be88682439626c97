package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a TaskError, its code, category and retryability carry over.
// Otherwise a new Internal error wraps the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a TaskError, preserve its properties
	var taskErr *Error
	if errors.As(err, &taskErr) {
		wrapped := &Error{
			code:      taskErr.code,
			category:  taskErr.category,
			message:   message,
			cause:     err,
			metadata:  taskErr.Metadata(),
			retryable: taskErr.retryable,
			taskID:    taskErr.taskID,
			workerID:  taskErr.workerID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Context errors map to a timeout, which is retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsTaskError attempts to extract a TaskError from an error chain.
// Returns nil if no TaskError is found.
func AsTaskError(err error) TaskError {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.category == category
	}
	return false
}

// IsRetryable reports whether the failure may succeed on a later attempt.
// Plain errors without a code default to retryable: an unclassified failure
// from handler logic is a runtime failure, not a shape violation.
func IsRetryable(err error) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.Retryable()
	}
	return true
}

// IsNotFound checks if the error indicates a missing task record.
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

// IsConflict checks if the error indicates an invalid status transition.
func IsConflict(err error) bool {
	return Is(err, ErrCodeConflict)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a TaskError.
func Code(err error) ErrorCode {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a TaskError.
func Category(err error) ErrorCategory {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// RecoverPanic converts a recovered panic value into an Error.
// The result is permanent-by-category internal, but explicitly marked
// retryable: a panicking handler is a runtime failure like any other.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message,
		WithRetryable(true),
		WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
