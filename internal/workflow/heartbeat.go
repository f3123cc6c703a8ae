package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/jobs"
	"clipforge/internal/logging"
)

// HeartbeatMonitor manages job heartbeats and stale job reclamation.
type HeartbeatMonitor struct {
	store             *jobs.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *jobs.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale fails processing jobs that have stopped sending heartbeats.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context) ([]int64, error) {
	if h.heartbeatTimeout <= 0 {
		return nil, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff, jobs.StalledReason)
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		h.logger.Warn("failed stalled jobs",
			logging.Int("count", len(reclaimed)),
			logging.Any("job_ids", reclaimed),
			logging.String(logging.FieldEventType, "heartbeat_reclaim"),
			logging.String(logging.FieldImpact, "stalled jobs must be processed again"),
		)
	}
	return reclaimed, nil
}

// StartLoop runs a heartbeat updater for a specific job until context cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)
	beat := func() {
		if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Debug("heartbeat update cancelled")
			} else {
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}

	// The first beat covers the gap since the job was last touched in the queue.
	beat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}
