package worker

import (
	"context"
	"sync/atomic"
	"time"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// reportTimeout bounds outcome reporting. Reports run on their own context
// so a finished execution is recorded even while the pool shuts down.
const reportTimeout = 5 * time.Second

// worker is one execution unit inside a Pool.
type worker struct {
	id   string
	pool *Pool

	processed  atomic.Int64
	failed     atomic.Int64
	lastActive atomic.Int64 // unixnano of the last claim-loop touch
}

// run is the claim loop. claimCtx stops new claims; taskCtx interrupts an
// in-flight handler when the drain deadline passes.
func (w *worker) run(claimCtx, taskCtx context.Context) {
	defer w.pool.wg.Done()

	log := w.pool.logger
	log.WorkerStarted(w.id)
	defer func() {
		log.WorkerStopped(w.id, w.processed.Load(), w.failed.Load())
	}()

	backoff := w.pool.pollInterval
	for {
		if claimCtx.Err() != nil {
			return
		}
		w.touch()

		task, err := w.pool.store.Claim(claimCtx, w.id, w.pool.lease)
		if err != nil {
			if claimCtx.Err() != nil {
				return
			}
			log.Error("claim_failed", map[string]interface{}{
				"worker": w.id,
				"error":  err.Error(),
			})
			if !sleep(claimCtx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, w.pool.maxBackoff)
			continue
		}

		if task == nil {
			if !sleep(claimCtx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, w.pool.maxBackoff)
			continue
		}

		backoff = w.pool.pollInterval
		log.TaskClaimed(task.ID, w.id)
		w.process(taskCtx, task)
	}
}

// process dispatches one claimed task and reports the outcome.
func (w *worker) process(ctx context.Context, task *tasks.Task) {
	log := w.pool.logger
	start := time.Now()

	result, err := w.pool.registry.Dispatch(ctx, task)
	w.touch()

	reportCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err == nil {
		duration := time.Since(start)
		if cerr := w.pool.store.Complete(reportCtx, task.ID, result); cerr != nil {
			// A deleted or reclaimed task is not this worker's problem.
			if tderrors.IsNotFound(cerr) || tderrors.IsConflict(cerr) {
				log.Debug("task_outcome_discarded", map[string]interface{}{
					"task":   task.ID,
					"worker": w.id,
					"reason": cerr.Error(),
				})
				return
			}
			log.Error("complete_failed", map[string]interface{}{
				"task":  task.ID,
				"error": cerr.Error(),
			})
			w.failed.Add(1)
			return
		}
		w.processed.Add(1)
		w.pool.metrics.TaskCompleted(duration)
		log.TaskCompleted(task.ID, duration)
		return
	}

	w.failed.Add(1)
	status, ferr := w.pool.store.Fail(reportCtx, task.ID, err)
	if ferr != nil {
		if tderrors.IsNotFound(ferr) || tderrors.IsConflict(ferr) {
			log.Debug("task_outcome_discarded", map[string]interface{}{
				"task":   task.ID,
				"worker": w.id,
				"reason": ferr.Error(),
			})
			return
		}
		log.Error("fail_report_failed", map[string]interface{}{
			"task":  task.ID,
			"error": ferr.Error(),
		})
		return
	}

	// Retryable failures count the execution; permanent ones do not. The
	// claim snapshot can be stale by the time the report lands (lease
	// reclaims, redrives), so prefer the stored record's count.
	attempts := task.Attempts
	if tderrors.IsRetryable(err) {
		attempts++
	}
	if fresh, gerr := w.pool.store.Get(reportCtx, task.ID); gerr == nil {
		attempts = fresh.Attempts
	}
	switch status {
	case tasks.StatusQueued:
		w.pool.metrics.TaskRetried()
		log.TaskRetrying(task.ID, attempts, err)
	case tasks.StatusDead:
		w.pool.metrics.TaskDead()
		log.TaskDead(task.ID, attempts, err)
	}
}

func (w *worker) touch() {
	w.lastActive.Store(time.Now().UnixNano())
}

// sleep waits for d or until ctx is done. Returns false if ctx won.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the idle delay up to the cap.
func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
