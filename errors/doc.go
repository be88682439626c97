// Package errors provides the structured error taxonomy for taskdaemon.
// Every failure the engine reports carries a code and a category, which
// together drive the retry state machine and what callers observe.
//
// # Error Categories
//
// Errors are classified into three categories:
//
//   - Retryable: the execution may succeed on a later attempt (handler
//     runtime failures, handler timeouts)
//   - Permanent: retrying cannot help (unknown task type, schema
//     validation failures, missing records)
//   - Internal: unexpected failures in the engine itself (storage I/O,
//     recovered panics)
//
// # Error Codes
//
// Each error has a specific code identifying the failure:
//
//   - STORE_ERR: I/O failure on the backing medium
//   - UNKNOWN_TASK_TYPE: no handler registered for the task's type
//   - VALIDATION: payload or result failed declared-shape checking
//   - HANDLER_FAILED: runtime failure raised by handler logic
//   - TIMEOUT: handler exceeded its configured execution timeout
//   - LEASE_EXPIRED: internal signal during stale-lease reclamation
//   - NOT_FOUND: the referenced task no longer exists
//   - CONFLICT: operation invalid for the task's current status
//   - PANIC: handler panicked and was recovered
//
// # Usage
//
// Create a new error:
//
//	err := errors.UnknownTaskType("send_email")
//
// Wrap a storage failure with context:
//
//	wrapped := errors.Wrap(err, "claiming task")
//
// Decide whether a failure is retryable:
//
//	if errors.IsRetryable(err) {
//	    // requeue
//	}
//
// # JSON Serialization
//
// Errors marshal to JSON so terminal failure detail survives in the store:
//
//	data, err := json.Marshal(taskErr)
package errors
