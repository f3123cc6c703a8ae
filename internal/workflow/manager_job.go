package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/publish"
)

// run executes one accepted job and commits its outcome. Stage errors end
// here as a failed job; they never propagate to the submitter.
func (m *Manager) run(ctx context.Context, job *jobs.Job) {
	ctx = jobContext(ctx, job)
	logger := logging.WithContext(ctx, m.logger)

	m.setActive(job.ID, "queued")
	defer m.clearActive(job.ID)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		stopHeartbeat()
		hbWG.Wait()
	}()

	outputDir := m.jobOutputDir(job.ID)
	if err := m.prepareOutputDir(outputDir, job); err != nil {
		m.fail(ctx, job, "prepare output directory: "+err.Error())
		return
	}

	runner := pipeline.NewRunner(m.engineFor(outputDir), m.logger, pipeline.WithProgress(func(stageCtx context.Context, stage pipeline.Stage) {
		m.setActive(job.ID, string(stage))
		if err := m.store.UpdateProgress(stageCtx, job.ID, string(stage)); err != nil {
			logger.Warn("failed to persist stage progress", logging.Stage(string(stage)), logging.Error(err))
		}
		m.record(history.Event{JobID: job.ID, Type: history.EventStageStarted, Stage: string(stage), CorrelationID: job.CorrelationID})
	}))

	result, err := runner.Run(ctx, pipeline.Input{
		SourcePath:         job.SourceVideoPath,
		FilterID:           job.FilterID,
		AudioPath:          job.AudioPath,
		Volume:             job.Volume,
		SubtitleText:       job.SubtitleText,
		EmphasizeSubtitles: job.UniquifySubtitles,
	})
	if ctx.Err() != nil {
		logger.Info("daemon shutting down, leaving job for reconciliation",
			logging.String(logging.FieldImpact, "job stays processing until reclaimed"),
		)
		return
	}
	if err != nil {
		m.fail(ctx, job, err.Error())
		return
	}
	m.complete(ctx, job, result)
}

func (m *Manager) complete(ctx context.Context, job *jobs.Job, result pipeline.Result) {
	logger := logging.WithContext(ctx, m.logger)
	if err := m.store.Complete(ctx, job.ID, job.CorrelationID, result.OutputPath); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job completion",
			logging.String("output", result.OutputPath),
			logging.Error(err),
			logging.String(logging.FieldEventType, "commit_failed"),
			logging.String(logging.FieldErrorHint, "job may have been reclaimed by the heartbeat sweeper"),
		)
		return
	}
	m.record(history.Event{JobID: job.ID, Type: history.EventCompleted, Message: result.OutputPath, CorrelationID: job.CorrelationID})
	logger.Info("job completed",
		logging.String("output", result.OutputPath),
		logging.Int("stages", len(result.Stages)),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	url := m.publish(ctx, job, result.OutputPath)
	m.notify(ctx, "job_completed", func(n notifications.Service) error {
		return n.NotifyJobCompleted(ctx, job.Name, result.OutputPath, url)
	})
	m.rememberJob(ctx, job.ID)
}

func (m *Manager) fail(ctx context.Context, job *jobs.Job, reason string) {
	logger := logging.WithContext(ctx, m.logger)
	logger.Error("job failed",
		logging.String("error_message", reason),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, "fix the job inputs and process it again"),
	)
	if err := m.store.Fail(ctx, job.ID, job.CorrelationID, reason); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	m.setLastError(errors.New(reason))
	m.record(history.Event{JobID: job.ID, Type: history.EventFailed, Message: reason, CorrelationID: job.CorrelationID})
	m.notify(ctx, "job_failed", func(n notifications.Service) error {
		return n.NotifyJobFailed(ctx, job.Name, reason)
	})
	m.rememberJob(ctx, job.ID)
}

// publish uploads the output when a backend is configured and returns the
// artifact URL. Failures are logged and recorded; the job stays completed.
func (m *Manager) publish(ctx context.Context, job *jobs.Job, output string) string {
	if m.publisher == nil {
		return ""
	}
	logger := logging.WithContext(ctx, m.logger)
	key := publish.ObjectKey(m.cfg.Publish.Prefix, job.ID, output)
	url, err := m.publisher.Publish(ctx, output, key)
	if err != nil {
		logging.WarnWithContext(logger, "publish failed; output kept locally", "publish_failed",
			logging.String("backend", m.publisher.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "artifact_url stays empty"),
		)
		m.record(history.Event{JobID: job.ID, Type: history.EventPublishFailed, Message: err.Error(), CorrelationID: job.CorrelationID})
		return ""
	}
	if err := m.store.SetArtifactURL(ctx, job.ID, url); err != nil {
		logger.Warn("failed to store artifact url", logging.String("url", url), logging.Error(err))
		return url
	}
	m.record(history.Event{JobID: job.ID, Type: history.EventPublished, Message: url, CorrelationID: job.CorrelationID})
	return url
}

// notify delivers an alert when a notifier is configured. Delivery failures
// only warn.
func (m *Manager) notify(ctx context.Context, event string, send func(notifications.Service) error) {
	if m.notifier == nil {
		return
	}
	if err := send(m.notifier); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "notification failed", "notification_failed",
			logging.String("event", event),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job outcome is unaffected"),
		)
	}
}

// prepareOutputDir empties the job's output directory so a retry never sees
// files from an earlier attempt. Job inputs that live there are kept.
func (m *Manager) prepareOutputDir(dir string, job *jobs.Job) error {
	keep := map[string]struct{}{}
	for _, p := range []string{job.SourceVideoPath, job.AudioPath} {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			keep[abs] = struct{}{}
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			if _, ok := keep[abs]; ok {
				continue
			}
		}
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("stale output cleanup failed",
				logging.JobID(job.ID),
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cleanup_failed"),
			)
			m.record(history.Event{JobID: job.ID, Type: history.EventCleanupWarning, Message: err.Error(), CorrelationID: job.CorrelationID})
		}
	}
	return os.MkdirAll(dir, 0o755)
}

func (m *Manager) rememberJob(ctx context.Context, id int64) {
	job, err := m.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return
	}
	m.mu.Lock()
	m.lastJob = job
	m.mu.Unlock()
}

func (m *Manager) setActive(id int64, stage string) {
	m.mu.Lock()
	m.active[id] = stage
	m.mu.Unlock()
}

func (m *Manager) clearActive(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
