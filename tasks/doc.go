// Package tasks defines the unit of work and its lifecycle state machine.
//
// A Task carries a type name, an opaque structured payload, and lifecycle
// bookkeeping: status, attempt count, claim ownership, and lease expiry.
// The store owns every Task record; workers only ever hold a time-bounded
// lease on one.
//
// # Task Lifecycle
//
// Tasks move through the following states:
//
//	queued → processing → completed
//	             ↓
//	          queued (retry) | dead
//
// dead (and the legacy terminal state failed) move back to queued only
// through an explicit redrive. Delete is valid from every state and
// removes the record outright.
//
// # Attempts
//
// Attempts counts finished executions. It is incremented when an execution
// completes or fails with a retryable error. Failures that are permanent by
// category (unknown type, validation) send the task straight to dead without
// counting an execution. Redrive preserves the counter.
package tasks
