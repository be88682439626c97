package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// MemoryStore implements Store with in-process storage. A restart loses
// every task; there is no cross-process sharing and no lease-based crash
// recovery beyond what Claim itself performs inside the process.
type MemoryStore struct {
	opts options

	mu     sync.Mutex
	tasks  map[int64]*tasks.Task
	order  []int64 // task IDs ascending; Claim scans this for FIFO
	nextID int64
	closed atomic.Bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		opts:  o,
		tasks: make(map[int64]*tasks.Task),
	}
}

// Enqueue creates a task in queued state and returns its ID.
func (s *MemoryStore) Enqueue(ctx context.Context, taskType string, payload any, opts ...EnqueueOption) (int64, error) {
	if s.closed.Load() {
		return 0, tderrors.Store("store closed")
	}
	if taskType == "" {
		return 0, tderrors.InvalidInput("task type must not be empty")
	}

	var eo enqueueOptions
	for _, opt := range opts {
		opt(&eo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.opts.now()
	t := &tasks.Task{
		ID:         s.nextID,
		Type:       taskType,
		Payload:    tasks.CopyValue(payload),
		Status:     tasks.StatusQueued,
		MaxRetries: eo.resolveMaxRetries(s.opts.defaultMaxRetries),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return t.ID, nil
}

// Claim hands the oldest eligible task to workerID under a lease.
func (s *MemoryStore) Claim(ctx context.Context, workerID string, lease time.Duration) (*tasks.Task, error) {
	if s.closed.Load() {
		return nil, tderrors.Store("store closed")
	}
	if workerID == "" {
		return nil, tderrors.InvalidInput("worker ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	for _, id := range s.order {
		t := s.tasks[id]
		stale := t.LeaseExpired(now)
		if t.Status != tasks.StatusQueued && !stale {
			continue
		}
		if stale {
			s.opts.logger.Debug("stale_lease_reclaimed", map[string]interface{}{
				"task":  t.ID,
				"owner": t.ClaimOwner,
			})
		}
		expiry := now.Add(lease)
		t.Status = tasks.StatusProcessing
		t.ClaimOwner = workerID
		t.LeaseExpiry = &expiry
		t.UpdatedAt = now
		return t.Clone(), nil
	}
	return nil, nil
}

// Complete marks a processing task completed and stores its result.
func (s *MemoryStore) Complete(ctx context.Context, id int64, result any) error {
	if s.closed.Load() {
		return tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return tderrors.NotFound(id)
	}

	switch t.Status {
	case tasks.StatusCompleted:
		// Idempotent - already completed
		return nil
	case tasks.StatusProcessing:
	default:
		return tderrors.Conflict("cannot complete task in status "+t.Status.String(), tderrors.WithTaskID(id))
	}

	t.Status = tasks.StatusCompleted
	t.Attempts++
	t.Result = tasks.CopyValue(result)
	t.ClaimOwner = ""
	t.LeaseExpiry = nil
	t.UpdatedAt = s.opts.now()
	return nil
}

// Fail reports a failed execution and returns the resulting status.
func (s *MemoryStore) Fail(ctx context.Context, id int64, failure error) (tasks.Status, error) {
	if s.closed.Load() {
		return "", tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return "", tderrors.NotFound(id)
	}

	switch t.Status {
	case tasks.StatusDead:
		// Idempotent - already terminally failed
		return tasks.StatusDead, nil
	case tasks.StatusProcessing:
	default:
		return "", tderrors.Conflict("cannot fail task in status "+t.Status.String(), tderrors.WithTaskID(id))
	}

	attempts, next := failOutcome(t.Attempts, t.MaxRetries, failure)
	t.Attempts = attempts
	t.Status = next
	t.Error = errorText(failure)
	t.ClaimOwner = ""
	t.LeaseExpiry = nil
	t.UpdatedAt = s.opts.now()
	return next, nil
}

// Redrive moves a failed/dead task back to queued.
func (s *MemoryStore) Redrive(ctx context.Context, id int64) error {
	if s.closed.Load() {
		return tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return tderrors.NotFound(id)
	}
	if !tasks.CanTransition(t.Status, tasks.StatusQueued) || t.Status == tasks.StatusProcessing {
		return tderrors.Conflict("cannot redrive task in status "+t.Status.String(), tderrors.WithTaskID(id))
	}

	// Attempts counter is preserved across redrive.
	t.Status = tasks.StatusQueued
	t.Error = ""
	t.ClaimOwner = ""
	t.LeaseExpiry = nil
	t.UpdatedAt = s.opts.now()
	return nil
}

// Delete removes the record in any status.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if s.closed.Load() {
		return tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return tderrors.NotFound(id)
	}
	delete(s.tasks, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the task.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*tasks.Task, error) {
	if s.closed.Load() {
		return nil, tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, tderrors.NotFound(id)
	}
	return t.Clone(), nil
}

// List returns up to limit tasks, most recent first.
func (s *MemoryStore) List(ctx context.Context, limit int, status tasks.Status) ([]*tasks.Task, error) {
	if s.closed.Load() {
		return nil, tderrors.Store("store closed")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*tasks.Task, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.tasks[s.order[i]]
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// Depth returns the count of claimable tasks.
func (s *MemoryStore) Depth(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, tderrors.Store("store closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	depth := 0
	for _, t := range s.tasks {
		if t.Status == tasks.StatusQueued || t.LeaseExpired(now) {
			depth++
		}
	}
	return depth, nil
}

// Close marks the store closed. Subsequent operations fail.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}
