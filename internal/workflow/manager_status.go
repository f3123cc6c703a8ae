package workflow

import (
	"context"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	QueueDepth  int
	Active      map[int64]string
	LastError   string
	LastJob     *jobs.Job
	JobStats    map[jobs.Status]int
	StageHealth []StageHealth
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	active := make(map[int64]string, len(m.active))
	for id, stage := range m.active {
		active[id] = stage
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     max(m.cfg.Workflow.Workers, 1),
		QueueDepth:  len(m.queue),
		Active:      active,
		JobStats:    stats,
		StageHealth: m.engineHealth(),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		snapshot := *lastJob
		summary.LastJob = &snapshot
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
