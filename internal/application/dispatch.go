// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of asynchronous event processing. The ingress adapters
// enqueue jobs after acknowledging the webhook; workers run them to
// completion or failure. Failures are logged and recorded, never surfaced
// to the upstream platform.
type Job struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

// JobStats is the per-kind outcome record kept for observability.
type JobStats struct {
	Processed int64
	Failed    int64
}

// Dispatcher owns the job queue and worker pool. It has an explicit
// lifecycle: Start launches the workers, Stop drains them. Enqueueing never
// blocks the caller beyond queue backpressure, and a full queue drops the
// job with a log line rather than stalling a webhook acknowledgment.
type Dispatcher struct {
	queue   chan Job
	workers int
	logger  *slog.Logger

	mu     sync.Mutex
	stats  map[string]*JobStats
	timers map[string]*time.Timer

	wg      sync.WaitGroup
	started bool
}

// NewDispatcher creates a dispatcher with the given worker count and queue capacity.
func NewDispatcher(workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}

	return &Dispatcher{
		queue:   make(chan Job, queueSize),
		workers: workers,
		logger:  logger,
		stats:   make(map[string]*JobStats),
		timers:  make(map[string]*time.Timer),
	}
}

// Start launches the worker pool. Workers exit when the context is canceled
// and the queue is drained, or immediately on cancellation if idle.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop cancels pending delayed jobs and waits for in-flight jobs to finish.
// Callers cancel the Start context first.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Enqueue schedules a job for processing. Returns the job id. If the queue
// is full the job is dropped and logged; the upstream platform has already
// been acknowledged and will not retry, which matches the engine's
// at-most-once processing contract.
func (d *Dispatcher) Enqueue(kind string, run func(ctx context.Context) error) string {
	job := Job{ID: uuid.NewString(), Kind: kind, Run: run}

	select {
	case d.queue <- job:
	default:
		d.logger.Error("job queue full, dropping job", "kind", kind, "job_id", job.ID)
		d.record(kind, false)
	}

	return job.ID
}

// EnqueueAfter schedules a job to enter the queue after the given delay.
// Used by the echo classifier's settle window so a faster sibling event can
// land first.
func (d *Dispatcher) EnqueueAfter(delay time.Duration, kind string, run func(ctx context.Context) error) string {
	id := uuid.NewString()

	d.mu.Lock()
	d.timers[id] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, id)
		d.mu.Unlock()

		job := Job{ID: id, Kind: kind, Run: run}
		select {
		case d.queue <- job:
		default:
			d.logger.Error("job queue full, dropping delayed job", "kind", kind, "job_id", id)
			d.record(kind, false)
		}
	})
	d.mu.Unlock()

	return id
}

// QueueDepth returns the number of jobs waiting in the queue.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Stats returns a snapshot of per-kind job outcomes.
func (d *Dispatcher) Stats() map[string]JobStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]JobStats, len(d.stats))
	for kind, s := range d.stats {
		out[kind] = *s
	}
	return out
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.runJob(ctx, job, n)
		}
	}
}

// runJob executes one job, recovering panics so a bad payload cannot take
// down the worker pool.
func (d *Dispatcher) runJob(ctx context.Context, job Job, worker int) {
	start := time.Now()

	defer func() {
		if v := recover(); v != nil {
			d.logger.Error("job panicked", "kind", job.Kind, "job_id", job.ID, "panic", v)
			d.record(job.Kind, false)
		}
	}()

	if err := job.Run(ctx); err != nil {
		d.logger.Error("job failed",
			"kind", job.Kind,
			"job_id", job.ID,
			"worker", worker,
			"duration", time.Since(start).Round(time.Millisecond),
			"error", err,
		)
		d.record(job.Kind, false)
		return
	}

	d.logger.Debug("job complete",
		"kind", job.Kind,
		"job_id", job.ID,
		"worker", worker,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	d.record(job.Kind, true)
}

func (d *Dispatcher) record(kind string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, found := d.stats[kind]
	if !found {
		s = &JobStats{}
		d.stats[kind] = s
	}

	if ok {
		s.Processed++
	} else {
		s.Failed++
	}
}
