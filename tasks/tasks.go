package tasks

import (
	"time"
)

// Status represents the current lifecycle state of a task.
type Status string

const (
	// StatusQueued indicates the task is waiting to be claimed.
	StatusQueued Status = "queued"

	// StatusProcessing indicates a worker holds a lease on the task.
	StatusProcessing Status = "processing"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed is a recognized terminal failure state. The engine
	// itself terminates failures as StatusDead; records in this state
	// (written by external tooling or older schemas) are still accepted
	// by redrive and delete.
	StatusFailed Status = "failed"

	// StatusDead indicates terminal failure: retries exhausted or a
	// non-retryable error.
	StatusDead Status = "dead"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDead
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusDead:
		return true
	}
	return false
}

// transitions is the complete set of legal status changes. Delete is not a
// transition; it removes the record and is valid from every state.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusQueued, StatusDead},
	StatusFailed:     {StatusQueued}, // redrive only
	StatusDead:       {StatusQueued}, // redrive only
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task represents a unit of work owned by the store.
type Task struct {
	// ID is unique and monotonically increasing, assigned at enqueue
	// time, never reused.
	ID int64 `json:"id"`

	// Type names the handler capability that processes this task.
	Type string `json:"type"`

	// Payload is an opaque structured value (nested maps, sequences,
	// primitives, binary). The store never interprets it.
	Payload any `json:"payload"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Attempts counts finished executions so far.
	Attempts int `json:"attempts"`

	// MaxRetries is the number of retries allowed after the first
	// execution before the task is terminally dead.
	MaxRetries int `json:"max_retries"`

	// Result is set if and only if the task completed.
	Result any `json:"result,omitempty"`

	// Error holds the last failure's detail. Overwritten per failure,
	// not appended; cleared by redrive.
	Error string `json:"error,omitempty"`

	// ClaimOwner identifies the worker holding the lease.
	// Non-empty exactly while Status is processing.
	ClaimOwner string `json:"claim_owner,omitempty"`

	// LeaseExpiry is when the claim lapses and the task becomes
	// reclaimable. Non-nil exactly while Status is processing.
	LeaseExpiry *time.Time `json:"lease_expiry,omitempty"`

	// CreatedAt is when the task was enqueued.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every mutation, monotonically non-decreasing.
	UpdatedAt time.Time `json:"updated_at"`
}

// LeaseExpired reports whether the task is processing with a lapsed lease.
func (t *Task) LeaseExpired(now time.Time) bool {
	return t.Status == StatusProcessing && t.LeaseExpiry != nil && !t.LeaseExpiry.After(now)
}

// Clone creates a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := &Task{
		ID:         t.ID,
		Type:       t.Type,
		Payload:    CopyValue(t.Payload),
		Status:     t.Status,
		Attempts:   t.Attempts,
		MaxRetries: t.MaxRetries,
		Result:     CopyValue(t.Result),
		Error:      t.Error,
		ClaimOwner: t.ClaimOwner,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}

	if t.LeaseExpiry != nil {
		expiry := *t.LeaseExpiry
		clone.LeaseExpiry = &expiry
	}

	return clone
}

// CopyValue deep-copies a structured payload/result value: maps, sequences
// and byte slices are duplicated, everything else is returned as-is.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case Values:
		out := make(Values, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
