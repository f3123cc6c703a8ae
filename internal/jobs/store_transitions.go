package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BeginProcessing atomically moves a draft or failed job to processing. The
// guarded UPDATE is the only mutual exclusion between concurrent submitters:
// exactly one caller observes a changed row.
func (s *Store) BeginProcessing(ctx context.Context, id int64, correlationID string) (*Job, error) {
	sources := sourcesFor(StatusProcessing)
	now := formatTime(time.Now())
	args := []any{StatusProcessing, nullableString(correlationID), now, now, now, id}
	args = append(args, statusArgs(sources)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = NULL, output_path = NULL, artifact_url = NULL,
             attempts = attempts + 1, progress_stage = 'Queued', correlation_id = ?,
             last_heartbeat = ?, started_at = ?, finished_at = NULL, updated_at = ?
         WHERE id = ? AND status IN (`+makePlaceholders(len(sources))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("begin processing: %w", err)
	}
	if err := s.explainMiss(ctx, res, id, ErrNotProcessable); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Complete records a successful run. The write only lands while the job is
// still processing under the same correlation id.
func (s *Store) Complete(ctx context.Context, id int64, correlationID, outputPath string) error {
	return s.finish(ctx, id, correlationID, StatusCompleted, outputPath)
}

// Fail records a failed run with reason as the error message.
func (s *Store) Fail(ctx context.Context, id int64, correlationID, reason string) error {
	return s.finish(ctx, id, correlationID, StatusFailed, reason)
}

func (s *Store) finish(ctx context.Context, id int64, correlationID string, to Status, detail string) error {
	probe := Job{ID: id, Status: StatusProcessing}
	if err := probe.Transition(to, detail); err != nil {
		return err
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, output_path = ?, error_message = ?, progress_stage = NULL,
             last_heartbeat = NULL, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ? AND IFNULL(correlation_id, '') = ?`,
		probe.Status,
		nullableString(probe.OutputPath),
		nullableString(probe.ErrorMessage),
		now,
		now,
		id,
		StatusProcessing,
		correlationID,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %d is no longer processing under %s", ErrInvalidTransition, id, correlationID)
	}
	return nil
}

// UpdateProgress stores the current stage label of a processing job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress_stage = ?, last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		strings.TrimSpace(stage),
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// SetArtifactURL records where a completed output was published.
func (s *Store) SetArtifactURL(ctx context.Context, id int64, url string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET artifact_url = ?, updated_at = ? WHERE id = ? AND status = ?`,
		nullableString(url),
		formatTime(time.Now()),
		id,
		StatusCompleted,
	); err != nil {
		return fmt.Errorf("set artifact url: %w", err)
	}
	return nil
}

// ResetToDraft returns a completed or failed job to draft, clearing its outcome.
func (s *Store) ResetToDraft(ctx context.Context, id int64) (*Job, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, output_path = NULL, error_message = NULL, artifact_url = NULL,
             progress_stage = NULL, correlation_id = NULL, last_heartbeat = NULL,
             finished_at = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusDraft,
		formatTime(time.Now()),
		id,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("reset job: %w", err)
	}
	if err := s.explainMiss(ctx, res, id, ErrInvalidTransition); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ReclaimStaleProcessing fails processing jobs whose heartbeat is older than
// cutoff and returns their ids.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]int64, error) {
	stale, err := s.processingIDs(ctx, `AND COALESCE(last_heartbeat, updated_at) < ?`, formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	var reclaimed []int64
	for _, id := range stale {
		ok, err := s.failIfStale(ctx, id, cutoff, reason)
		if err != nil {
			return reclaimed, err
		}
		if ok {
			reclaimed = append(reclaimed, id)
		}
	}
	return reclaimed, nil
}

// FailAllProcessing fails every processing job and returns their ids.
func (s *Store) FailAllProcessing(ctx context.Context, reason string) ([]int64, error) {
	return s.ReclaimStaleProcessing(ctx, time.Now().Add(time.Hour), reason)
}

func (s *Store) failIfStale(ctx context.Context, id int64, cutoff time.Time, reason string) (bool, error) {
	probe := Job{ID: id, Status: StatusProcessing}
	if err := probe.Transition(StatusFailed, reason); err != nil {
		return false, err
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, output_path = NULL, error_message = ?, progress_stage = NULL,
             last_heartbeat = NULL, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ? AND COALESCE(last_heartbeat, updated_at) < ?`,
		probe.Status,
		probe.ErrorMessage,
		now,
		now,
		id,
		StatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return false, fmt.Errorf("reclaim job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) processingIDs(ctx context.Context, clause string, args ...any) ([]int64, error) {
	query := `SELECT id FROM jobs WHERE status = ? ` + clause + ` ORDER BY id`
	rows, err := s.db.QueryContext(ensureContext(ctx), query, append([]any{StatusProcessing}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query processing jobs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
