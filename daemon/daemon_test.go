package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskdaemon/taskdaemon/config"
	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/logging"
	"github.com/taskdaemon/taskdaemon/store"
	"github.com/taskdaemon/taskdaemon/tasks"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.PollInterval = 5 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	cfg.DrainTimeout = time.Second
	return cfg
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	d, err := New(testConfig(),
		WithStore(store.NewMemoryStore()),
		WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { d.Shutdown() })
	return d
}

func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 0
	if _, err := New(cfg, WithStore(store.NewMemoryStore())); err == nil {
		t.Error("New() with zero workers succeeded, want error")
	}
}

func TestEndToEnd(t *testing.T) {
	d := newTestDaemon(t)
	d.RegisterFunc("add", func(ctx context.Context, payload any) (any, error) {
		values, _ := tasks.AsValues(payload)
		return map[string]any{"sum": values.Int("a") + values.Int("b")}, nil
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	id, err := d.Submit(context.Background(), "add", map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusCompleted
	})

	task, _ := d.Task(context.Background(), id)
	result, _ := tasks.AsValues(task.Result)
	if got := result.Int("sum"); got != 5 {
		t.Errorf(`result["sum"] = %d, want 5`, got)
	}

	snap, err := d.Metrics(context.Background())
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if snap.TasksReceived != 1 || snap.TasksCompleted != 1 {
		t.Errorf("metrics = received %d completed %d, want 1/1",
			snap.TasksReceived, snap.TasksCompleted)
	}
}

func TestUnknownTypeGoesDead(t *testing.T) {
	d := newTestDaemon(t)
	d.Start(context.Background())

	id, _ := d.Submit(context.Background(), "never_registered", nil)
	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusDead
	})

	task, _ := d.Task(context.Background(), id)
	if task.Attempts != 0 {
		t.Errorf("Attempts = %d for unknown type, want 0", task.Attempts)
	}
}

func TestRedriveDeadTask(t *testing.T) {
	d := newTestDaemon(t)
	fixed := make(chan struct{})
	d.RegisterFunc("flaky", func(ctx context.Context, payload any) (any, error) {
		select {
		case <-fixed:
			return "ok", nil
		default:
			return nil, errors.New("still broken")
		}
	})
	d.Start(context.Background())

	id, _ := d.Submit(context.Background(), "flaky", nil, store.WithMaxRetries(0))
	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusDead
	})

	close(fixed)
	if err := d.Redrive(context.Background(), id); err != nil {
		t.Fatalf("Redrive() error = %v", err)
	}

	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusCompleted
	})

	task, _ := d.Task(context.Background(), id)
	if task.Attempts != 2 {
		t.Errorf("Attempts = %d after redrive and success, want 2", task.Attempts)
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	d := newTestDaemon(t)
	d.RegisterFunc("noop", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})

	// Producers may enqueue before the workers come up.
	id, err := d.Submit(context.Background(), "noop", nil)
	if err != nil {
		t.Fatalf("Submit() before Start error = %v", err)
	}

	d.Start(context.Background())
	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusCompleted
	})
}

func TestTasksListing(t *testing.T) {
	d := newTestDaemon(t)
	for i := 0; i < 3; i++ {
		if _, err := d.Submit(context.Background(), "pending", nil); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	got, err := d.Tasks(context.Background(), 10, tasks.StatusQueued)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Tasks() returned %d, want 3", len(got))
	}
}

func TestHealth(t *testing.T) {
	d := newTestDaemon(t)

	h, err := d.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.Status != HealthStopped {
		t.Errorf("Status before start = %q, want %q", h.Status, HealthStopped)
	}

	d.Start(context.Background())
	d.Submit(context.Background(), "queued_forever", nil)

	pollUntil(t, 2*time.Second, func() bool {
		h, err = d.Health(context.Background())
		return err == nil && h.Status == HealthOK
	})
	if h.Workers != 2 || h.LiveWorkers != 2 {
		t.Errorf("Health workers = %d live %d, want 2/2", h.Workers, h.LiveWorkers)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	d := newTestDaemon(t)
	d.Start(context.Background())
	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := d.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if err := d.Start(context.Background()); !tderrors.IsConflict(err) {
		t.Errorf("Start() after Shutdown error = %v, want conflict", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancel")
	}
}

func TestDaemonOwnsSQLiteStore(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "daemon.db")

	d, err := New(cfg, WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.RegisterFunc("noop", func(ctx context.Context, payload any) (any, error) {
		return "done", nil
	})
	d.Start(context.Background())

	id, err := d.Submit(context.Background(), "noop", nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusCompleted
	})

	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// A second daemon on the same file sees the completed task.
	d2, err := New(cfg, WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("reopen New() error = %v", err)
	}
	defer d2.Shutdown()

	task, err := d2.Task(context.Background(), id)
	if err != nil {
		t.Fatalf("Task() after restart error = %v", err)
	}
	if task.Status != tasks.StatusCompleted {
		t.Errorf("Status after restart = %q, want %q", task.Status, tasks.StatusCompleted)
	}
}

func TestHandlerTimeoutFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HandlerTimeout = 20 * time.Millisecond

	d, err := New(cfg, WithStore(store.NewMemoryStore()), WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Shutdown()

	d.RegisterFunc("stuck", func(ctx context.Context, payload any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d.Start(context.Background())

	id, _ := d.Submit(context.Background(), "stuck", nil, store.WithMaxRetries(0))
	pollUntil(t, 2*time.Second, func() bool {
		task, err := d.Task(context.Background(), id)
		return err == nil && task.Status == tasks.StatusDead
	})

	task, _ := d.Task(context.Background(), id)
	if task.Error == "" {
		t.Error("timeout not recorded in task error")
	}
}
