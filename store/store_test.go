package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type backend struct {
	name string
	open func(t *testing.T, opts ...Option) Store
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T, opts ...Option) Store {
				t.Helper()
				s := NewMemoryStore(opts...)
				t.Cleanup(func() { s.Close() })
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T, opts ...Option) Store {
				t.Helper()
				s, err := OpenSQLite(filepath.Join(t.TempDir(), "tasks.db"), opts...)
				if err != nil {
					t.Fatalf("OpenSQLite() error = %v", err)
				}
				t.Cleanup(func() { s.Close() })
				return s
			},
		},
	}
}

func mustEnqueue(t *testing.T, s Store, taskType string, payload any, opts ...EnqueueOption) int64 {
	t.Helper()
	id, err := s.Enqueue(context.Background(), taskType, payload, opts...)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	return id
}

func mustClaim(t *testing.T, s Store, workerID string, lease time.Duration) *tasks.Task {
	t.Helper()
	task, err := s.Claim(context.Background(), workerID, lease)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if task == nil {
		t.Fatalf("Claim() returned no task, want one")
	}
	return task
}

func mustGet(t *testing.T, s Store, id int64) *tasks.Task {
	t.Helper()
	task, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%d) error = %v", id, err)
	}
	return task
}

func TestEnqueueAndGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			id := mustEnqueue(t, s, "send_email", map[string]any{"to": "a@b.c"})
			task := mustGet(t, s, id)

			if task.Type != "send_email" {
				t.Errorf("Type = %q, want %q", task.Type, "send_email")
			}
			if task.Status != tasks.StatusQueued {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusQueued)
			}
			if task.Attempts != 0 {
				t.Errorf("Attempts = %d, want 0", task.Attempts)
			}
			if task.MaxRetries != DefaultMaxRetries {
				t.Errorf("MaxRetries = %d, want %d", task.MaxRetries, DefaultMaxRetries)
			}
			payload, ok := tasks.AsValues(task.Payload)
			if !ok {
				t.Fatalf("Payload has type %T, want map", task.Payload)
			}
			if got := payload.String("to"); got != "a@b.c" {
				t.Errorf(`payload["to"] = %q, want "a@b.c"`, got)
			}
			if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
				t.Error("timestamps not set")
			}
		})
	}
}

func TestEnqueueValidation(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			if _, err := s.Enqueue(context.Background(), "", nil); err == nil {
				t.Error("Enqueue with empty type succeeded, want error")
			}
		})
	}
}

func TestEnqueueMaxRetriesOverride(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil, WithMaxRetries(7))
			if got := mustGet(t, s, id).MaxRetries; got != 7 {
				t.Errorf("MaxRetries = %d, want 7", got)
			}
		})
	}
}

func TestClaimFIFO(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			var ids []int64
			for i := 0; i < 5; i++ {
				ids = append(ids, mustEnqueue(t, s, "job", map[string]any{"n": i}))
			}

			// Different workers draining the same store still see the
			// tasks in enqueue order, each exactly once.
			for i, want := range ids {
				task := mustClaim(t, s, fmt.Sprintf("w%d", i%3), time.Minute)
				if task.ID != want {
					t.Errorf("claim #%d = task %d, want %d", i+1, task.ID, want)
				}
			}
		})
	}
}

func TestClaimEmpty(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			task, err := s.Claim(context.Background(), "w1", time.Minute)
			if err != nil {
				t.Fatalf("Claim() error = %v", err)
			}
			if task != nil {
				t.Errorf("Claim() = %+v, want nil", task)
			}
		})
	}
}

func TestClaimSetsLease(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clk := newFakeClock()
			s := b.open(t, WithClock(clk.Now))

			mustEnqueue(t, s, "job", nil)
			task := mustClaim(t, s, "w1", 30*time.Second)

			if task.Status != tasks.StatusProcessing {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusProcessing)
			}
			if task.ClaimOwner != "w1" {
				t.Errorf("ClaimOwner = %q, want %q", task.ClaimOwner, "w1")
			}
			if task.LeaseExpiry == nil {
				t.Fatal("LeaseExpiry not set")
			}
			want := clk.Now().Add(30 * time.Second)
			if !task.LeaseExpiry.Equal(want) {
				t.Errorf("LeaseExpiry = %v, want %v", task.LeaseExpiry, want)
			}
		})
	}
}

func TestClaimSingleWinner(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)

			const claimers = 16
			var wg sync.WaitGroup
			winners := make(chan string, claimers)
			for i := 0; i < claimers; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					task, err := s.Claim(context.Background(), fmt.Sprintf("w%d", i), time.Minute)
					if err != nil {
						t.Errorf("Claim() error = %v", err)
						return
					}
					if task != nil {
						winners <- task.ClaimOwner
					}
				}()
			}
			wg.Wait()
			close(winners)

			var owners []string
			for w := range winners {
				owners = append(owners, w)
			}
			if len(owners) != 1 {
				t.Fatalf("%d claimers won task %d, want exactly 1 (owners %v)", len(owners), id, owners)
			}
			if got := mustGet(t, s, id).ClaimOwner; got != owners[0] {
				t.Errorf("stored owner = %q, claim returned %q", got, owners[0])
			}
		})
	}
}

func TestClaimSkipsActiveLeases(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clk := newFakeClock()
			s := b.open(t, WithClock(clk.Now))

			mustEnqueue(t, s, "job", nil)
			mustClaim(t, s, "w1", 30*time.Second)

			clk.Advance(29 * time.Second)
			task, err := s.Claim(context.Background(), "w2", 30*time.Second)
			if err != nil {
				t.Fatalf("Claim() error = %v", err)
			}
			if task != nil {
				t.Errorf("claimed task %d with an unexpired lease", task.ID)
			}
		})
	}
}

func TestClaimReclaimsStaleLease(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clk := newFakeClock()
			s := b.open(t, WithClock(clk.Now))

			id := mustEnqueue(t, s, "job", nil)
			mustClaim(t, s, "w1", 30*time.Second)

			clk.Advance(31 * time.Second)
			task := mustClaim(t, s, "w2", 30*time.Second)
			if task.ID != id {
				t.Fatalf("reclaimed task %d, want %d", task.ID, id)
			}
			if task.ClaimOwner != "w2" {
				t.Errorf("ClaimOwner = %q, want %q", task.ClaimOwner, "w2")
			}
			if task.Status != tasks.StatusProcessing {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusProcessing)
			}
		})
	}
}

func TestSupersededOwnerReport(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clk := newFakeClock()
			s := b.open(t, WithClock(clk.Now))

			id := mustEnqueue(t, s, "job", nil)
			mustClaim(t, s, "w1", 30*time.Second)

			clk.Advance(31 * time.Second)
			reclaimed := mustClaim(t, s, "w2", 30*time.Second)
			if reclaimed.ClaimOwner != "w2" {
				t.Fatalf("ClaimOwner = %q, want w2", reclaimed.ClaimOwner)
			}

			// w1 finished its execution anyway. Under at-least-once
			// delivery both executions are real, so the superseded
			// worker's outcome is accepted even while w2 holds the lease.
			if err := s.Complete(context.Background(), id, "w1 result"); err != nil {
				t.Fatalf("Complete() from superseded worker error = %v", err)
			}

			// w2's later report hits terminal idempotency.
			if err := s.Complete(context.Background(), id, "w2 result"); err != nil {
				t.Fatalf("Complete() from current worker error = %v", err)
			}

			task := mustGet(t, s, id)
			if task.Status != tasks.StatusCompleted {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusCompleted)
			}
			if task.Attempts != 1 {
				t.Errorf("Attempts = %d after duplicate reports, want 1", task.Attempts)
			}
			if got, _ := task.Result.(string); got != "w1 result" {
				t.Errorf("Result = %v, want the first report's result", task.Result)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "add", map[string]any{"a": 2, "b": 3})
			mustClaim(t, s, "w1", time.Minute)

			if err := s.Complete(context.Background(), id, map[string]any{"sum": 5}); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			task := mustGet(t, s, id)
			if task.Status != tasks.StatusCompleted {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusCompleted)
			}
			if task.Attempts != 1 {
				t.Errorf("Attempts = %d, want 1", task.Attempts)
			}
			if task.ClaimOwner != "" || task.LeaseExpiry != nil {
				t.Error("claim fields not cleared on completion")
			}
			result, ok := tasks.AsValues(task.Result)
			if !ok {
				t.Fatalf("Result has type %T, want map", task.Result)
			}
			if got := result.Int("sum"); got != 5 {
				t.Errorf(`result["sum"] = %d, want 5`, got)
			}
		})
	}
}

func TestCompleteIdempotent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)
			mustClaim(t, s, "w1", time.Minute)

			if err := s.Complete(context.Background(), id, "done"); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if err := s.Complete(context.Background(), id, "done"); err != nil {
				t.Fatalf("second Complete() error = %v, want nil", err)
			}
			if got := mustGet(t, s, id).Attempts; got != 1 {
				t.Errorf("Attempts = %d after duplicate complete, want 1", got)
			}
		})
	}
}

func TestCompleteWrongState(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)

			err := s.Complete(context.Background(), id, nil)
			if !tderrors.IsConflict(err) {
				t.Errorf("Complete() on queued task: error = %v, want conflict", err)
			}
		})
	}
}

func TestCompleteNotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			if err := s.Complete(context.Background(), 99, nil); !tderrors.IsNotFound(err) {
				t.Errorf("Complete(99) error = %v, want not found", err)
			}
		})
	}
}

func TestFailRetryable(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil, WithMaxRetries(2))
			mustClaim(t, s, "w1", time.Minute)

			status, err := s.Fail(context.Background(), id, errors.New("connection reset"))
			if err != nil {
				t.Fatalf("Fail() error = %v", err)
			}
			if status != tasks.StatusQueued {
				t.Errorf("Fail() status = %q, want %q", status, tasks.StatusQueued)
			}

			task := mustGet(t, s, id)
			if task.Attempts != 1 {
				t.Errorf("Attempts = %d, want 1", task.Attempts)
			}
			if task.Error != "connection reset" {
				t.Errorf("Error = %q, want %q", task.Error, "connection reset")
			}
			if task.ClaimOwner != "" || task.LeaseExpiry != nil {
				t.Error("claim fields not cleared on requeue")
			}
		})
	}
}

func TestFailExhaustsRetryBudget(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil, WithMaxRetries(2))

			// With max_retries = 2 the task gets three executions total.
			for i, want := range []tasks.Status{tasks.StatusQueued, tasks.StatusQueued, tasks.StatusDead} {
				mustClaim(t, s, "w1", time.Minute)
				status, err := s.Fail(context.Background(), id, errors.New("boom"))
				if err != nil {
					t.Fatalf("Fail() #%d error = %v", i+1, err)
				}
				if status != want {
					t.Fatalf("Fail() #%d status = %q, want %q", i+1, status, want)
				}
			}

			task := mustGet(t, s, id)
			if task.Attempts != 3 {
				t.Errorf("Attempts = %d, want 3", task.Attempts)
			}
			if task.Error == "" {
				t.Error("Error not recorded for dead task")
			}
		})
	}
}

func TestFailPermanent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "nope", nil)
			mustClaim(t, s, "w1", time.Minute)

			status, err := s.Fail(context.Background(), id, tderrors.UnknownTaskType("nope"))
			if err != nil {
				t.Fatalf("Fail() error = %v", err)
			}
			if status != tasks.StatusDead {
				t.Errorf("Fail() status = %q, want %q", status, tasks.StatusDead)
			}

			task := mustGet(t, s, id)
			if task.Attempts != 0 {
				t.Errorf("Attempts = %d after permanent failure, want 0", task.Attempts)
			}
		})
	}
}

func TestFailThenSucceed(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)

			for i := 0; i < 2; i++ {
				mustClaim(t, s, "w1", time.Minute)
				if _, err := s.Fail(context.Background(), id, errors.New("transient")); err != nil {
					t.Fatalf("Fail() error = %v", err)
				}
			}
			mustClaim(t, s, "w1", time.Minute)
			if err := s.Complete(context.Background(), id, "ok"); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			task := mustGet(t, s, id)
			if task.Status != tasks.StatusCompleted {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusCompleted)
			}
			if task.Attempts != 3 {
				t.Errorf("Attempts = %d, want 3", task.Attempts)
			}
		})
	}
}

func TestFailIdempotentOnDead(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil, WithMaxRetries(0))
			mustClaim(t, s, "w1", time.Minute)

			if status, _ := s.Fail(context.Background(), id, errors.New("boom")); status != tasks.StatusDead {
				t.Fatalf("first Fail() status = %q, want dead", status)
			}
			status, err := s.Fail(context.Background(), id, errors.New("boom again"))
			if err != nil {
				t.Fatalf("second Fail() error = %v, want nil", err)
			}
			if status != tasks.StatusDead {
				t.Errorf("second Fail() status = %q, want dead", status)
			}
		})
	}
}

func TestRedrive(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil, WithMaxRetries(0))
			mustClaim(t, s, "w1", time.Minute)
			if _, err := s.Fail(context.Background(), id, errors.New("boom")); err != nil {
				t.Fatalf("Fail() error = %v", err)
			}

			if err := s.Redrive(context.Background(), id); err != nil {
				t.Fatalf("Redrive() error = %v", err)
			}

			task := mustGet(t, s, id)
			if task.Status != tasks.StatusQueued {
				t.Errorf("Status = %q, want %q", task.Status, tasks.StatusQueued)
			}
			if task.Attempts != 1 {
				t.Errorf("Attempts = %d after redrive, want 1 (preserved)", task.Attempts)
			}
			if task.Error != "" {
				t.Errorf("Error = %q after redrive, want cleared", task.Error)
			}

			// Redriven task is claimable again.
			if got := mustClaim(t, s, "w2", time.Minute).ID; got != id {
				t.Errorf("post-redrive claim = task %d, want %d", got, id)
			}
		})
	}
}

func TestRedriveWrongState(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)

			if err := s.Redrive(context.Background(), id); !tderrors.IsConflict(err) {
				t.Errorf("Redrive() on queued task: error = %v, want conflict", err)
			}
			if err := s.Redrive(context.Background(), 99); !tderrors.IsNotFound(err) {
				t.Errorf("Redrive(99) error = %v, want not found", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)

			if err := s.Delete(context.Background(), id); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := s.Get(context.Background(), id); !tderrors.IsNotFound(err) {
				t.Errorf("Get() after delete: error = %v, want not found", err)
			}
			if err := s.Delete(context.Background(), id); !tderrors.IsNotFound(err) {
				t.Errorf("second Delete() error = %v, want not found", err)
			}
		})
	}
}

func TestDeleteInFlight(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			id := mustEnqueue(t, s, "job", nil)
			mustClaim(t, s, "w1", time.Minute)

			if err := s.Delete(context.Background(), id); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			// The worker's eventual report lands on a missing task.
			if err := s.Complete(context.Background(), id, nil); !tderrors.IsNotFound(err) {
				t.Errorf("Complete() after delete: error = %v, want not found", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			var ids []int64
			for i := 0; i < 5; i++ {
				ids = append(ids, mustEnqueue(t, s, "job", map[string]any{"n": i}))
			}
			mustClaim(t, s, "w1", time.Minute)
			if err := s.Complete(context.Background(), ids[0], nil); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			all, err := s.List(context.Background(), 3, "")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("List(3) returned %d tasks, want 3", len(all))
			}
			if all[0].ID != ids[4] {
				t.Errorf("List() first = task %d, want most recent %d", all[0].ID, ids[4])
			}

			done, err := s.List(context.Background(), 10, tasks.StatusCompleted)
			if err != nil {
				t.Fatalf("List(completed) error = %v", err)
			}
			if len(done) != 1 || done[0].ID != ids[0] {
				t.Errorf("List(completed) = %v, want just task %d", done, ids[0])
			}
		})
	}
}

func TestDepth(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			clk := newFakeClock()
			s := b.open(t, WithClock(clk.Now))

			mustEnqueue(t, s, "job", nil)
			mustEnqueue(t, s, "job", nil)
			id := mustEnqueue(t, s, "job", nil)

			depth, err := s.Depth(context.Background())
			if err != nil {
				t.Fatalf("Depth() error = %v", err)
			}
			if depth != 3 {
				t.Errorf("Depth() = %d, want 3", depth)
			}

			mustClaim(t, s, "w1", 30*time.Second)
			mustClaim(t, s, "w1", 30*time.Second)
			mustClaim(t, s, "w1", 30*time.Second)
			if err := s.Complete(context.Background(), id, nil); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			if depth, _ = s.Depth(context.Background()); depth != 0 {
				t.Errorf("Depth() with all in flight = %d, want 0", depth)
			}

			// Lapsed leases count as claimable again.
			clk.Advance(31 * time.Second)
			if depth, _ = s.Depth(context.Background()); depth != 2 {
				t.Errorf("Depth() after lease expiry = %d, want 2", depth)
			}
		})
	}
}

func TestSQLiteDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	queued := mustEnqueue(t, s, "job", map[string]any{"n": 1})
	done := mustEnqueue(t, s, "job", map[string]any{"n": 2})
	mustClaim(t, s, "w1", time.Minute) // task `queued` goes in flight and stays there
	mustClaim(t, s, "w1", time.Minute)
	if err := s.Complete(context.Background(), done, map[string]any{"ok": true}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Simulates a daemon restart: state must be exactly as acknowledged.
	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	inflight := mustGet(t, s, queued)
	if inflight.Status != tasks.StatusProcessing {
		t.Errorf("in-flight task status = %q after restart, want %q", inflight.Status, tasks.StatusProcessing)
	}
	if inflight.ClaimOwner != "w1" {
		t.Errorf("in-flight task owner = %q after restart, want w1", inflight.ClaimOwner)
	}

	completed := mustGet(t, s, done)
	if completed.Status != tasks.StatusCompleted {
		t.Errorf("completed task status = %q after restart, want %q", completed.Status, tasks.StatusCompleted)
	}
	if completed.Attempts != 1 {
		t.Errorf("completed task attempts = %d after restart, want 1", completed.Attempts)
	}
}

func TestErrorTextKeepsCode(t *testing.T) {
	got := errorText(tderrors.Timeout("handler exceeded 5s"))
	want := "TIMEOUT: handler exceeded 5s"
	if got != want {
		t.Errorf("errorText() = %q, want %q", got, want)
	}
	if got := errorText(errors.New("plain")); got != "plain" {
		t.Errorf("errorText(plain) = %q, want %q", got, "plain")
	}
}
