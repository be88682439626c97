package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/taskdaemon/taskdaemon/config"
	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/logging"
	"github.com/taskdaemon/taskdaemon/metrics"
	"github.com/taskdaemon/taskdaemon/registry"
	"github.com/taskdaemon/taskdaemon/store"
	"github.com/taskdaemon/taskdaemon/tasks"
	"github.com/taskdaemon/taskdaemon/worker"
)

// Daemon ties together the store, registry, worker pool and metrics.
type Daemon struct {
	cfg      config.Config
	logger   *logging.Logger
	store    store.Store
	ownStore bool
	registry *registry.Registry
	metrics  *metrics.Collector
	pool     *worker.Pool

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option configures a Daemon beyond its Config.
type Option func(*Daemon)

// WithStore supplies a store instead of the SQLite file at cfg.DBPath.
// The caller keeps ownership: Shutdown will not close it.
func WithStore(s store.Store) Option {
	return func(d *Daemon) {
		d.store = s
		d.ownStore = false
	}
}

// WithLogger replaces the default console logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.logger = l
		}
	}
}

// New builds a stopped daemon from cfg. Handlers register next, then Start
// or Run brings up the workers.
func New(cfg config.Config, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, tderrors.InvalidInput(err.Error())
	}

	d := &Daemon{cfg: cfg, metrics: metrics.NewCollector()}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logging.New()
		d.logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	if d.store == nil {
		s, err := store.OpenSQLite(cfg.DBPath,
			store.WithDefaultMaxRetries(cfg.MaxRetries),
			store.WithLogger(d.logger.WithComponent("store")))
		if err != nil {
			return nil, err
		}
		d.store = s
		d.ownStore = true
	}

	regOpts := []registry.Option{
		registry.WithLogger(d.logger.WithComponent("registry")),
	}
	if cfg.HandlerTimeout > 0 {
		regOpts = append(regOpts, registry.WithDefaultTimeout(cfg.HandlerTimeout))
	}
	d.registry = registry.New(regOpts...)

	d.pool = worker.New(d.store, d.registry,
		worker.WithSize(cfg.Workers),
		worker.WithLease(cfg.LeaseDuration),
		worker.WithPollInterval(cfg.PollInterval),
		worker.WithMaxBackoff(cfg.MaxBackoff),
		worker.WithLogger(d.logger.WithComponent("worker")),
		worker.WithMetrics(d.metrics))

	return d, nil
}

// Register binds a handler to a task type.
func (d *Daemon) Register(name string, h registry.Handler, opts ...registry.RegisterOption) error {
	return d.registry.Register(name, h, opts...)
}

// RegisterFunc is Register for a bare function.
func (d *Daemon) RegisterFunc(name string, f func(ctx context.Context, payload any) (any, error), opts ...registry.RegisterOption) error {
	return d.registry.RegisterFunc(name, f, opts...)
}

// TaskTypes returns the registered task type names, sorted.
func (d *Daemon) TaskTypes() []string {
	return d.registry.Types()
}

// Start launches the worker pool and returns. Use Run to also handle
// signals and block.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return tderrors.Conflict("daemon already shut down")
	}
	if d.started {
		return nil
	}
	d.started = true

	d.logger.Info("daemon_starting", map[string]interface{}{
		"workers":     d.cfg.Workers,
		"lease":       d.cfg.LeaseDuration.String(),
		"max_retries": d.cfg.MaxRetries,
		"task_types":  len(d.registry.Types()),
	})
	d.pool.Start(ctx)
	return nil
}

// Run starts the daemon and blocks until SIGINT/SIGTERM or ctx
// cancellation, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		d.logger.Info("signal_received", map[string]interface{}{
			"signal": sig.String(),
		})
	case <-ctx.Done():
	}

	return d.Shutdown()
}

// Shutdown drains the pool and, if the daemon opened its own store,
// closes it. Safe to call more than once.
func (d *Daemon) Shutdown() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	if started {
		d.pool.Stop(d.cfg.DrainTimeout)
	}
	if d.ownStore {
		if err := d.store.Close(); err != nil {
			return err
		}
	}
	d.logger.Info("daemon_stopped", nil)
	return nil
}

// Submit enqueues a task and returns its ID. Safe from any goroutine,
// before or after Start.
func (d *Daemon) Submit(ctx context.Context, taskType string, payload any, opts ...store.EnqueueOption) (int64, error) {
	id, err := d.store.Enqueue(ctx, taskType, payload, opts...)
	if err != nil {
		return 0, err
	}
	d.metrics.TaskReceived()
	d.logger.TaskEnqueued(id, taskType)
	return id, nil
}

// Task returns the current record for a task ID.
func (d *Daemon) Task(ctx context.Context, id int64) (*tasks.Task, error) {
	return d.store.Get(ctx, id)
}

// Tasks lists up to limit tasks, most recent first, optionally filtered
// by status.
func (d *Daemon) Tasks(ctx context.Context, limit int, status tasks.Status) ([]*tasks.Task, error) {
	return d.store.List(ctx, limit, status)
}

// Redrive moves a failed or dead task back to the queue.
func (d *Daemon) Redrive(ctx context.Context, id int64) error {
	if err := d.store.Redrive(ctx, id); err != nil {
		return err
	}
	d.logger.TaskRedriven(id)
	return nil
}

// Delete removes a task record in any status.
func (d *Daemon) Delete(ctx context.Context, id int64) error {
	return d.store.Delete(ctx, id)
}

// Metrics returns the engine counters plus the current queue depth.
func (d *Daemon) Metrics(ctx context.Context) (metrics.Snapshot, error) {
	depth, err := d.store.Depth(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return d.metrics.Snapshot(depth), nil
}
