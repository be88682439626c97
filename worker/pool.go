package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdaemon/taskdaemon/logging"
	"github.com/taskdaemon/taskdaemon/metrics"
	"github.com/taskdaemon/taskdaemon/registry"
	"github.com/taskdaemon/taskdaemon/store"
)

// Defaults for pool tuning knobs left unset.
const (
	DefaultSize         = 2
	DefaultLease        = 30 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxBackoff   = 2 * time.Second
)

// stopGrace is how long Stop waits after canceling in-flight handler
// contexts before abandoning workers that still have not returned.
const stopGrace = time.Second

// Pool owns a fixed set of workers draining one store through one registry.
type Pool struct {
	store    store.Store
	registry *registry.Registry
	logger   *logging.Logger
	metrics  *metrics.Collector

	size         int
	lease        time.Duration
	pollInterval time.Duration
	maxBackoff   time.Duration

	workers []*worker
	wg      sync.WaitGroup

	mu          sync.Mutex
	claimCancel context.CancelFunc
	taskCancel  context.CancelFunc
	running     bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithSize sets the number of workers.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLease sets the claim lease duration. A worker that does not report
// an outcome within the lease loses the task to reclamation.
func WithLease(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.lease = d
		}
	}
}

// WithPollInterval sets the base delay between claim attempts on an empty
// store.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithMaxBackoff caps the exponential idle backoff.
func WithMaxBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.maxBackoff = d
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the counter collector the pool reports into.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pool) {
		if c != nil {
			p.metrics = c
		}
	}
}

// New creates a pool. Workers do not run until Start.
func New(s store.Store, r *registry.Registry, opts ...Option) *Pool {
	p := &Pool{
		store:        s,
		registry:     r,
		logger:       logging.Nop(),
		metrics:      metrics.NewCollector(),
		size:         DefaultSize,
		lease:        DefaultLease,
		pollInterval: DefaultPollInterval,
		maxBackoff:   DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. It returns immediately; workers run until
// Stop. Starting a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	claimCtx, claimCancel := context.WithCancel(ctx)
	taskCtx, taskCancel := context.WithCancel(ctx)
	p.claimCancel = claimCancel
	p.taskCancel = taskCancel

	p.workers = make([]*worker, p.size)
	for i := 0; i < p.size; i++ {
		w := &worker{
			id:   fmt.Sprintf("worker-%d-%s", i, uuid.NewString()[:8]),
			pool: p,
		}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(claimCtx, taskCtx)
	}

	p.logger.Info("pool_started", map[string]interface{}{
		"workers": p.size,
		"lease":   p.lease.String(),
	})
}

// Stop drains the pool: claiming stops immediately, in-flight executions
// get up to drainTimeout to finish, then their contexts are canceled.
// Workers still wedged after a short grace are abandoned rather than
// waited on, so Stop always returns in bounded time; abandoned tasks are
// recovered through lease expiry.
func (p *Pool) Stop(drainTimeout time.Duration) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	claimCancel, taskCancel := p.claimCancel, p.taskCancel
	p.mu.Unlock()

	claimCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		p.logger.Warn("drain_timeout_elapsed", map[string]interface{}{
			"timeout": drainTimeout.String(),
		})
		taskCancel()
		// A handler that ignores its context can wedge its worker
		// goroutine indefinitely. After the grace period the goroutine is
		// abandoned; the task's lease lapses on its own and the task is
		// reclaimed by the next claimer.
		select {
		case <-done:
		case <-time.After(stopGrace):
			p.logger.Warn("workers_abandoned", map[string]interface{}{
				"grace": stopGrace.String(),
			})
		}
	}
	taskCancel()

	p.logger.Info("pool_stopped", nil)
}

// Stats describes one worker for health reporting.
type Stats struct {
	ID         string    `json:"id"`
	Processed  int64     `json:"processed"`
	Failed     int64     `json:"failed"`
	LastActive time.Time `json:"last_active"`
	Live       bool      `json:"live"`
}

// WorkerStats returns a snapshot of every worker. A worker is considered
// live if it touched its claim loop within one lease duration; one stuck
// longer than that would already have lost its task to reclamation.
func (p *Pool) WorkerStats() []Stats {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	cutoff := time.Now().Add(-p.lease)
	out := make([]Stats, len(workers))
	for i, w := range workers {
		last := time.Unix(0, w.lastActive.Load())
		out[i] = Stats{
			ID:         w.id,
			Processed:  w.processed.Load(),
			Failed:     w.failed.Load(),
			LastActive: last,
			Live:       last.After(cutoff),
		}
	}
	return out
}

// Size returns the configured number of workers.
func (p *Pool) Size() int {
	return p.size
}
