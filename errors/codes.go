package errors

// ErrorCategory classifies errors by their retry semantics.
type ErrorCategory string

// Error categories define how the retry state machine treats a failure.
const (
	// CategoryRetryable indicates failures where a later attempt may succeed.
	// Examples: handler runtime errors, handler execution timeouts.
	CategoryRetryable ErrorCategory = "retryable"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unregistered task type, schema validation failure.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected engine failures.
	// Examples: storage I/O errors, recovered panics.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if failures in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryRetryable
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for the failure scenarios the engine distinguishes.
const (
	// Retryable errors
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED" // Handler logic raised an error
	ErrCodeTimeout       ErrorCode = "TIMEOUT"        // Handler exceeded its execution timeout

	// Permanent errors
	ErrCodeUnknownTaskType ErrorCode = "UNKNOWN_TASK_TYPE" // No handler registered for type
	ErrCodeValidation      ErrorCode = "VALIDATION"        // Declared-shape check failed
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"         // Task record does not exist
	ErrCodeConflict        ErrorCode = "CONFLICT"          // Operation invalid for current status
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"     // Malformed caller input

	// Internal errors
	ErrCodeStore        ErrorCode = "STORE_ERR"     // I/O failure on the backing medium
	ErrCodeLeaseExpired ErrorCode = "LEASE_EXPIRED" // Lease lapsed during stale reclamation
	ErrCodePanic        ErrorCode = "PANIC"         // Recovered from handler panic
	ErrCodeInternal     ErrorCode = "INTERNAL"      // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeHandlerFailed, ErrCodeTimeout:
		return CategoryRetryable

	case ErrCodeUnknownTaskType, ErrCodeValidation, ErrCodeNotFound,
		ErrCodeConflict, ErrCodeInvalidInput:
		return CategoryPermanent

	case ErrCodeStore, ErrCodeLeaseExpired, ErrCodePanic, ErrCodeInternal:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeHandlerFailed:   "handler execution failed",
	ErrCodeTimeout:         "handler execution timed out",
	ErrCodeUnknownTaskType: "no handler registered for task type",
	ErrCodeValidation:      "payload or result failed validation",
	ErrCodeNotFound:        "task not found",
	ErrCodeConflict:        "operation invalid for task status",
	ErrCodeInvalidInput:    "invalid input provided",
	ErrCodeStore:           "storage failure",
	ErrCodeLeaseExpired:    "lease expired",
	ErrCodePanic:           "recovered from handler panic",
	ErrCodeInternal:        "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
