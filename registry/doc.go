// Package registry maps task types to handlers and dispatches executions.
//
// Handlers self-register under a task type name, optionally with a declared
// input/output schema and a per-handler execution timeout. Dispatch resolves
// the handler for a task, validates the payload against the declared shape,
// runs the handler with panic recovery, and validates the result.
//
// Dispatch failures carry error codes the retry state machine understands:
// an unregistered type or a shape violation is permanent (the task goes
// straight to dead), while handler runtime errors, panics, and timeouts are
// retryable.
package registry
