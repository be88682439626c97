package daemon

import (
	"context"

	"github.com/taskdaemon/taskdaemon/worker"
)

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthStopped  = "stopped"
)

// Health is a point-in-time view of the daemon for liveness checks.
type Health struct {
	Status      string         `json:"status"`
	QueueDepth  int            `json:"queue_depth"`
	Workers     int            `json:"workers"`
	LiveWorkers int            `json:"live_workers"`
	WorkerStats []worker.Stats `json:"worker_stats,omitempty"`
}

// Health reports daemon liveness: queue depth plus per-worker activity.
// Status degrades when any worker has been silent longer than one lease.
func (d *Daemon) Health(ctx context.Context) (Health, error) {
	depth, err := d.store.Depth(ctx)
	if err != nil {
		return Health{Status: HealthDegraded}, err
	}

	d.mu.Lock()
	started, stopped := d.started, d.stopped
	d.mu.Unlock()

	h := Health{
		QueueDepth: depth,
		Workers:    d.pool.Size(),
	}
	if stopped || !started {
		h.Status = HealthStopped
		return h, nil
	}

	h.WorkerStats = d.pool.WorkerStats()
	for _, st := range h.WorkerStats {
		if st.Live {
			h.LiveWorkers++
		}
	}
	if h.LiveWorkers == len(h.WorkerStats) {
		h.Status = HealthOK
	} else {
		h.Status = HealthDegraded
	}
	return h, nil
}
