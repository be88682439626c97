package store

import (
	"fmt"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// errorText renders a failure for storage. The error code prefix keeps the
// failure category observable after the structured error is gone.
func errorText(failure error) string {
	if failure == nil {
		return ""
	}
	if te := tderrors.AsTaskError(failure); te != nil {
		return fmt.Sprintf("%s: %s", te.Code(), failure.Error())
	}
	return failure.Error()
}

// failOutcome computes the attempts counter and the next status after a
// failed execution. Retryable failures count the execution; permanent ones
// go straight to dead without counting (the handler never really ran the
// task to a finished execution — it was rejected up front).
func failOutcome(attempts, maxRetries int, failure error) (int, tasks.Status) {
	if !tderrors.IsRetryable(failure) {
		return attempts, tasks.StatusDead
	}
	attempts++
	return attempts, tasks.NextOnFailure(attempts, maxRetries, true)
}
