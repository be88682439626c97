package tasks

// NextOnFailure decides where a processing task goes after a failed
// execution. attempts is the counter after the failure has been counted.
//
// Non-retryable failures terminate immediately. Retryable failures requeue
// while the task still has retry budget: one initial execution plus
// MaxRetries retries, so a task with MaxRetries = 2 dies on its third
// failed execution.
func NextOnFailure(attempts, maxRetries int, retryable bool) Status {
	if !retryable {
		return StatusDead
	}
	if attempts > maxRetries {
		return StatusDead
	}
	return StatusQueued
}
