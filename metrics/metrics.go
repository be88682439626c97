// Package metrics maintains the engine's monotonic counters. An external
// metrics collector reads snapshots; the engine updates counters atomically
// on each state transition.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector accumulates engine counters. The zero value is ready to use
// and safe for concurrent access.
type Collector struct {
	received       atomic.Int64
	completed      atomic.Int64
	dead           atomic.Int64
	retries        atomic.Int64
	processingNano atomic.Int64
}

// NewCollector creates a Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// TaskReceived records a task entering the queue.
func (c *Collector) TaskReceived() {
	c.received.Add(1)
}

// TaskCompleted records a successful execution with its duration.
func (c *Collector) TaskCompleted(duration time.Duration) {
	c.completed.Add(1)
	c.processingNano.Add(int64(duration))
}

// TaskRetried records a failed execution that was requeued.
func (c *Collector) TaskRetried() {
	c.retries.Add(1)
}

// TaskDead records a task reaching terminal failure.
func (c *Collector) TaskDead() {
	c.dead.Add(1)
}

// Snapshot is a point-in-time copy of the counters plus the queue depth
// the caller supplies (depth is a store property, not a counter).
type Snapshot struct {
	TasksReceived  int64         `json:"tasks_received"`
	TasksCompleted int64         `json:"tasks_completed"`
	TasksDead      int64         `json:"tasks_dead"`
	TaskRetries    int64         `json:"task_retries"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	QueueDepth     int           `json:"queue_depth"`
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot(queueDepth int) Snapshot {
	return Snapshot{
		TasksReceived:  c.received.Load(),
		TasksCompleted: c.completed.Load(),
		TasksDead:      c.dead.Load(),
		TaskRetries:    c.retries.Load(),
		ProcessingTime: time.Duration(c.processingNano.Load()),
		QueueDepth:     queueDepth,
	}
}
