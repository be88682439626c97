package store

import (
	"context"
	"time"

	"github.com/taskdaemon/taskdaemon/logging"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// DefaultMaxRetries is the retry budget for tasks that do not override it
// and stores created without WithDefaultMaxRetries.
const DefaultMaxRetries = 3

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// Store is the durable (or in-memory) record of tasks. All operations are
// safe under concurrent invocation from multiple workers, and for the
// persistent implementation from multiple processes sharing one database.
type Store interface {
	// Enqueue creates a task in queued state with attempts = 0 and
	// returns its ID. Fails only if the backing medium is unavailable.
	Enqueue(ctx context.Context, taskType string, payload any, opts ...EnqueueOption) (int64, error)

	// Claim atomically selects the oldest eligible task (queued, or
	// processing with a lapsed lease), marks it processing under
	// workerID with the given lease, and returns a copy. Returns
	// (nil, nil) when no task is eligible.
	Claim(ctx context.Context, workerID string, lease time.Duration) (*tasks.Task, error)

	// Complete marks a processing task completed and stores its result.
	// Completing an already-completed task is an idempotent no-op.
	Complete(ctx context.Context, id int64, result any) error

	// Fail reports a failed execution. Retryable failures count an
	// attempt and requeue while budget remains, otherwise the task goes
	// dead; the attempts increment and the transition are atomic.
	// Returns the resulting status.
	Fail(ctx context.Context, id int64, failure error) (tasks.Status, error)

	// Redrive moves a failed/dead task back to queued, clearing its
	// error but preserving its attempts counter.
	Redrive(ctx context.Context, id int64) error

	// Delete removes the record in any status.
	Delete(ctx context.Context, id int64) error

	// Get returns a copy of the task.
	Get(ctx context.Context, id int64) (*tasks.Task, error)

	// List returns up to limit tasks, most recent first, optionally
	// filtered by status (empty status means all).
	List(ctx context.Context, limit int, status tasks.Status) ([]*tasks.Task, error)

	// Depth returns the number of tasks eligible for claiming: queued
	// plus processing with a lapsed lease.
	Depth(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// options configure a store implementation.
type options struct {
	now               func() time.Time
	defaultMaxRetries int
	logger            *logging.Logger
}

func defaultOptions() options {
	return options{
		now:               func() time.Time { return time.Now().UTC() },
		defaultMaxRetries: DefaultMaxRetries,
		logger:            logging.Nop(),
	}
}

// Option configures a store at construction time.
type Option func(*options)

// WithClock injects the time source. Tests use it to expire leases
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithDefaultMaxRetries sets the retry budget applied to tasks enqueued
// without an explicit override.
func WithDefaultMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.defaultMaxRetries = n
		}
	}
}

// WithLogger sets the logger for store-level events.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// enqueueOptions configure a single Enqueue call.
type enqueueOptions struct {
	maxRetries *int
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithMaxRetries overrides the per-daemon default retry budget for one task.
func WithMaxRetries(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 0 {
			o.maxRetries = &n
		}
	}
}

func (o *enqueueOptions) resolveMaxRetries(def int) int {
	if o.maxRetries != nil {
		return *o.maxRetries
	}
	return def
}
