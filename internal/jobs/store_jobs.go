package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"clipforge/internal/filters"
)

// Create validates spec and inserts a new draft job.
func (s *Store) Create(ctx context.Context, spec Spec) (*Job, error) {
	job := &Job{
		Name:              strings.TrimSpace(spec.Name),
		Status:            StatusDraft,
		SourceVideoPath:   strings.TrimSpace(spec.SourceVideoPath),
		AudioPath:         strings.TrimSpace(spec.AudioPath),
		SubtitleText:      spec.SubtitleText,
		Volume:            DefaultVolume,
		FilterID:          spec.FilterID,
		UniquifySubtitles: spec.UniquifySubtitles,
	}
	if spec.Volume != nil {
		job.Volume = *spec.Volume
	}
	if job.Name == "" {
		job.Name = inferNameFromPath(job.SourceVideoPath)
	}
	if err := s.validate(job); err != nil {
		return nil, err
	}

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            name, status, source_video_path, audio_path, subtitle_text, volume,
            filter_id, uniquify_subtitles, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Name,
		StatusDraft,
		job.SourceVideoPath,
		nullableString(job.AudioPath),
		nullableString(job.SubtitleText),
		job.Volume,
		job.FilterID,
		boolToInt(job.UniquifySubtitles),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Get fetches a job by identifier, returning ErrNotFound when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, statusArgs(statuses)...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update applies patch to a draft or failed job.
func (s *Store) Update(ctx context.Context, id int64, patch Patch) (*Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsEditable() {
		return nil, fmt.Errorf("%w: job %d is %s", ErrNotEditable, id, job.Status)
	}
	if patch.IsEmpty() {
		return job, nil
	}

	if patch.Name != nil {
		job.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.AudioPath != nil {
		job.AudioPath = strings.TrimSpace(*patch.AudioPath)
	}
	if patch.SubtitleText != nil {
		job.SubtitleText = *patch.SubtitleText
	}
	if patch.Volume != nil {
		job.Volume = *patch.Volume
	}
	if patch.FilterID != nil {
		job.FilterID = *patch.FilterID
	}
	if patch.UniquifySubtitles != nil {
		job.UniquifySubtitles = *patch.UniquifySubtitles
	}
	if err := s.validate(job); err != nil {
		return nil, err
	}

	editable := []Status{StatusDraft, StatusFailed}
	args := []any{
		job.Name,
		nullableString(job.AudioPath),
		nullableString(job.SubtitleText),
		job.Volume,
		job.FilterID,
		boolToInt(job.UniquifySubtitles),
		formatTime(time.Now()),
		id,
	}
	args = append(args, statusArgs(editable)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET name = ?, audio_path = ?, subtitle_text = ?, volume = ?, filter_id = ?,
             uniquify_subtitles = ?, updated_at = ?
         WHERE id = ? AND status IN (`+makePlaceholders(len(editable))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := s.explainMiss(ctx, res, id, ErrNotEditable); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a job that is not processing.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ? AND status != ?`, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return s.explainMiss(ctx, res, id, ErrNotEditable)
}

// explainMiss converts a zero-row guarded write into ErrNotFound or guardErr.
func (s *Store) explainMiss(ctx context.Context, res sql.Result, id int64, guardErr error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return fmt.Errorf("%w: job %d is %s", guardErr, id, job.Status)
}

func (s *Store) validate(job *Job) error {
	var problems []string
	if job.SourceVideoPath == "" {
		problems = append(problems, "source video path is required")
	}
	nameLen := utf8.RuneCountInString(job.Name)
	if nameLen == 0 {
		problems = append(problems, "name is required")
	} else if nameLen > s.limits.MaxNameChars {
		problems = append(problems, fmt.Sprintf("name exceeds %d characters", s.limits.MaxNameChars))
	}
	if utf8.RuneCountInString(job.SubtitleText) > s.limits.MaxSubtitleChars {
		problems = append(problems, fmt.Sprintf("subtitle text exceeds %d characters", s.limits.MaxSubtitleChars))
	}
	if job.Volume < 0 || job.Volume > 100 {
		problems = append(problems, "volume must be between 0 and 100")
	}
	kind, err := filters.Parse(job.FilterID)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		job.FilterID = string(kind)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidJob, strings.Join(problems, "; "))
	}
	return nil
}
