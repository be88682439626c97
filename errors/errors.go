package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskError is the interface for all structured errors in taskdaemon.
// It extends the standard error interface with the context the retry
// state machine and external observers need.
type TaskError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry decisions.
	Category() ErrorCategory

	// Retryable returns true if the execution may succeed on retry.
	Retryable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of TaskError.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil means use default based on category
	timestamp time.Time
	taskID    int64  // related task, if applicable
	workerID  string // reporting worker, if applicable
}

// Ensure Error implements TaskError and json.Marshaler/Unmarshaler.
var (
	_ TaskError        = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// TaskID returns the related task ID, if set.
func (e *Error) TaskID() int64 {
	return e.taskID
}

// WorkerID returns the reporting worker ID, if set.
func (e *Error) WorkerID() string {
	return e.workerID
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp string            `json:"timestamp,omitempty"`
	TaskID    int64             `json:"task_id,omitempty"`
	WorkerID  string            `json:"worker_id,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
		TaskID:    e.taskID,
		WorkerID:  e.workerID,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.taskID = j.TaskID
	e.workerID = j.WorkerID
	r := j.Retryable
	e.retryable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithTaskID sets the related task ID.
func WithTaskID(id int64) Option {
	return func(e *Error) {
		e.taskID = id
	}
}

// WithWorkerID sets the reporting worker ID.
func WithWorkerID(id string) Option {
	return func(e *Error) {
		e.workerID = id
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// Store creates a storage failure error.
func Store(message string, opts ...Option) *Error {
	return New(ErrCodeStore, message, opts...)
}

// NotFound creates a not found error for a task ID.
func NotFound(taskID int64, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID)}, opts...)
	return New(ErrCodeNotFound, fmt.Sprintf("task %d not found", taskID), opts...)
}

// Conflict creates a conflict error.
func Conflict(message string, opts ...Option) *Error {
	return New(ErrCodeConflict, message, opts...)
}

// UnknownTaskType creates an error for an unregistered task type.
// It is permanent: the task goes straight to dead, no retries.
func UnknownTaskType(taskType string, opts ...Option) *Error {
	opts = append([]Option{WithMetadata("task_type", taskType)}, opts...)
	return New(ErrCodeUnknownTaskType,
		fmt.Sprintf("no handler registered for task type %q", taskType), opts...)
}

// Validation creates a declared-shape validation error.
// It is permanent: the task goes straight to dead, no retries.
func Validation(message string, opts ...Option) *Error {
	return New(ErrCodeValidation, message, opts...)
}

// HandlerFailed creates a retryable handler runtime error.
func HandlerFailed(cause error, opts ...Option) *Error {
	opts = append([]Option{WithCause(cause)}, opts...)
	return New(ErrCodeHandlerFailed, "handler execution failed", opts...)
}

// Timeout creates a handler timeout error.
func Timeout(message string, opts ...Option) *Error {
	return New(ErrCodeTimeout, message, opts...)
}

// LeaseExpired creates the internal stale-lease signal.
// It never reaches producers or consumers.
func LeaseExpired(taskID int64, owner string, opts ...Option) *Error {
	opts = append([]Option{WithTaskID(taskID), WithWorkerID(owner)}, opts...)
	return New(ErrCodeLeaseExpired,
		fmt.Sprintf("lease on task %d held by %q expired", taskID, owner), opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}
