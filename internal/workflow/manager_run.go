package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/services"
)

// Start reconciles leftovers from a previous daemon, then launches the worker
// pool and the stale-heartbeat sweeper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	if m.cfg.Workflow.ReconcileOnStart {
		if err := m.Reconcile(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := max(m.cfg.Workflow.Workers, 1)
	m.wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go m.worker(runCtx, i+1)
	}
	go m.sweep(runCtx)

	m.logger.Info("workflow started",
		logging.Int("workers", workers),
		logging.Int("queue_size", cap(m.queue)),
	)
	return nil
}

// Stop cancels in-flight work and waits for the pool to exit. Jobs that were
// mid-run stay processing until the sweeper or the next reconcile fails them.
// Jobs still waiting in the queue never started and are failed here.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.discardQueued()
}

// discardQueued fails every submission left in the queue once the pool has
// exited.
func (m *Manager) discardQueued() {
	for {
		select {
		case sub := <-m.queue:
			m.release(context.Background(), sub.job, jobs.StoppedReason)
		default:
			m.mu.Lock()
			clear(m.queued)
			m.mu.Unlock()
			return
		}
	}
}

// Reconcile fails every job left processing by a previous daemon.
func (m *Manager) Reconcile(ctx context.Context) error {
	ids, err := m.store.FailAllProcessing(ctx, jobs.InterruptedReason)
	if err != nil {
		return fmt.Errorf("reconcile processing jobs: %w", err)
	}
	for _, id := range ids {
		m.record(history.Event{JobID: id, Type: history.EventReclaimed, Message: jobs.InterruptedReason})
	}
	if len(ids) > 0 {
		m.logger.Warn("failed jobs interrupted by restart",
			logging.Int("count", len(ids)),
			logging.String(logging.FieldEventType, "reconcile"),
			logging.String(logging.FieldImpact, "interrupted jobs must be processed again"),
		)
		m.notify(ctx, "jobs_reclaimed", func(n notifications.Service) error {
			return n.NotifyJobsReclaimed(ctx, len(ids))
		})
	}
	return nil
}

// Submit moves job id to processing and queues it for a worker. It never
// waits for a free slot: when the queue is full the job is failed and
// ErrQueueFull is returned. The outcome is observed by polling the job record.
func (m *Manager) Submit(ctx context.Context, id int64) (*jobs.Job, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return nil, ErrNotRunning
	}

	job, err := m.begin(ctx, id)
	if err != nil {
		return nil, err
	}

	switch reason := m.enqueue(job); reason {
	case "":
		return job, nil
	case jobs.QueueFullReason:
		m.release(ctx, job, reason)
		return nil, fmt.Errorf("job %d: %w", job.ID, ErrQueueFull)
	default:
		m.release(ctx, job, reason)
		return nil, fmt.Errorf("job %d: %w", job.ID, ErrNotRunning)
	}
}

// enqueue hands job to the worker pool and returns "" on success, or the
// reason it could not be queued. The running check and the send share the
// lock so nothing is queued after Stop has begun.
func (m *Manager) enqueue(job *jobs.Job) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return jobs.StoppedReason
	}
	select {
	case m.queue <- submission{job: job}:
		m.queued[job.ID] = job.CorrelationID
		return ""
	default:
		return jobs.QueueFullReason
	}
}

// release fails an accepted job that never reached a worker.
func (m *Manager) release(ctx context.Context, job *jobs.Job, reason string) {
	logger := logging.WithContext(jobContext(ctx, job), m.logger)
	if err := m.store.Fail(context.WithoutCancel(ctx), job.ID, job.CorrelationID, reason); err != nil {
		if !errors.Is(err, jobs.ErrNotProcessable) {
			logger.Warn("failed to release unqueued job", logging.Error(err))
		}
		return
	}
	logger.Warn("job released without running",
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "job_released"),
		logging.String(logging.FieldImpact, "job must be processed again"),
	)
	m.record(history.Event{JobID: job.ID, Type: history.EventFailed, Message: reason, CorrelationID: job.CorrelationID})
}

// ProcessNow runs job id synchronously in the caller's goroutine and returns
// the committed job.
func (m *Manager) ProcessNow(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := m.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	m.run(ctx, job)
	return m.store.Get(context.WithoutCancel(ctx), id)
}

func (m *Manager) begin(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := m.store.BeginProcessing(ctx, id, uuid.NewString())
	if err != nil {
		return nil, err
	}
	m.record(history.Event{JobID: job.ID, Type: history.EventAccepted, CorrelationID: job.CorrelationID,
		Message: fmt.Sprintf("attempt %d", job.Attempts)})
	logging.WithContext(jobContext(ctx, job), m.logger).Info("job accepted",
		logging.String("source", job.SourceVideoPath),
		logging.String("filter", job.FilterID),
		logging.Int("attempt", job.Attempts),
	)
	return job, nil
}

func (m *Manager) worker(ctx context.Context, n int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-m.queue:
			m.dequeued(sub.job)
			if ctx.Err() != nil {
				m.release(ctx, sub.job, jobs.StoppedReason)
				return
			}
			if !m.owns(ctx, sub.job) {
				logger.Warn("skipping superseded submission",
					logging.JobID(sub.job.ID),
					logging.String(logging.FieldCorrelationID, sub.job.CorrelationID),
					logging.String(logging.FieldEventType, "submission_superseded"),
				)
				continue
			}
			logger.Debug("worker picked up job", logging.JobID(sub.job.ID))
			m.run(ctx, sub.job)
		}
	}
}

func (m *Manager) dequeued(job *jobs.Job) {
	m.mu.Lock()
	if m.queued[job.ID] == job.CorrelationID {
		delete(m.queued, job.ID)
	}
	m.mu.Unlock()
}

// owns reports whether the stored job is still the processing attempt this
// submission was accepted for. A job failed or retried while it waited in
// the queue belongs to someone else.
func (m *Manager) owns(ctx context.Context, job *jobs.Job) bool {
	current, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		m.logger.Warn("failed to load queued job", logging.JobID(job.ID), logging.Error(err))
		return false
	}
	return current != nil && current.Status == jobs.StatusProcessing && current.CorrelationID == job.CorrelationID
}

// touchQueued refreshes heartbeats of jobs waiting for a worker so the
// sweeper only reclaims runs that actually stalled.
func (m *Manager) touchQueued(ctx context.Context) {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.queued))
	for id := range m.queued {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		if err := m.store.UpdateHeartbeat(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("queued heartbeat update failed", logging.JobID(id), logging.Error(err))
		}
	}
}

// sweep periodically fails processing jobs whose heartbeat has expired.
func (m *Manager) sweep(ctx context.Context) {
	defer m.wg.Done()
	interval := m.heartbeat.heartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.touchQueued(ctx)
			ids, err := m.heartbeat.ReclaimStale(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					m.setLastError(err)
					m.logger.Warn("reclaim stale processing failed; stuck jobs may remain",
						logging.Error(err),
						logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
						logging.String(logging.FieldErrorHint, "check job database access"),
					)
				}
				continue
			}
			for _, id := range ids {
				m.record(history.Event{JobID: id, Type: history.EventReclaimed, Message: jobs.StalledReason})
			}
			if len(ids) > 0 {
				m.notify(ctx, "jobs_reclaimed", func(n notifications.Service) error {
					return n.NotifyJobsReclaimed(ctx, len(ids))
				})
			}
		}
	}
}

func jobContext(ctx context.Context, job *jobs.Job) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	return services.WithCorrelationID(ctx, job.CorrelationID)
}

func (m *Manager) record(ev history.Event) {
	if m.history == nil {
		return
	}
	if err := m.history.Record(ev); err != nil {
		m.logger.Warn("failed to record job event",
			logging.JobID(ev.JobID),
			logging.String("event", string(ev.Type)),
			logging.Error(err),
		)
	}
}
