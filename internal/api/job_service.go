package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"clipforge/internal/history"
	"clipforge/internal/jobs"
)

// JobReader is the read surface of the job store used by JobService.
type JobReader interface {
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	GetByID(ctx context.Context, id int64) (*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

// EventReader lists recorded history for a job.
type EventReader interface {
	ListForJob(jobID int64) ([]history.Event, error)
}

// JobService exposes transport-neutral job reads for the HTTP API and CLI.
type JobService struct {
	store  JobReader
	events EventReader
}

// NewJobService constructs a job service. events may be nil.
func NewJobService(store JobReader, events EventReader) *JobService {
	return &JobService{store: store, events: events}
}

// ParseStatusFilters converts textual status filters into jobs.Status values.
func ParseStatusFilters(values []string) ([]jobs.Status, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]jobs.Status, 0, len(values))
	for _, raw := range values {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := jobs.ParseStatus(part)
			if !ok {
				return nil, fmt.Errorf("unknown status %q: %w", part, jobs.ErrInvalidJob)
			}
			if !slices.Contains(out, status) {
				out = append(out, status)
			}
		}
	}
	return out, nil
}

// List returns jobs filtered by status, ordered by id.
func (s *JobService) List(ctx context.Context, statuses ...jobs.Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("job store unavailable")
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(items), nil
}

// Describe returns a single job or jobs.ErrNotFound.
func (s *JobService) Describe(ctx context.Context, id int64) (Job, error) {
	if s == nil || s.store == nil {
		return Job{}, errors.New("job store unavailable")
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job == nil {
		return Job{}, fmt.Errorf("job %d: %w", id, jobs.ErrNotFound)
	}
	return FromJob(job), nil
}

// Stats returns per-status counts including zero entries.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("job store unavailable")
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// Events returns the recorded history for a job. Missing history yields an empty list.
func (s *JobService) Events(ctx context.Context, id int64) (JobEventsResponse, error) {
	if _, err := s.Describe(ctx, id); err != nil {
		return JobEventsResponse{}, err
	}
	resp := JobEventsResponse{JobID: id, Events: []JobEvent{}}
	if s.events == nil {
		return resp, nil
	}
	events, err := s.events.ListForJob(id)
	if err != nil {
		return JobEventsResponse{}, err
	}
	resp.Events = FromEvents(events)
	return resp, nil
}

// Export reports the output of a completed job.
func (s *JobService) Export(ctx context.Context, id int64) (Export, error) {
	job, err := s.Describe(ctx, id)
	if err != nil {
		return Export{}, err
	}
	if job.Status != string(jobs.StatusCompleted) || job.OutputPath == "" {
		return Export{}, fmt.Errorf("job %d is %s: %w", id, job.Status, jobs.ErrNotProcessable)
	}
	export := Export{JobID: id, OutputPath: job.OutputPath, ArtifactURL: job.ArtifactURL}
	if info, err := os.Stat(job.OutputPath); err == nil {
		export.SizeBytes = info.Size()
	}
	return export, nil
}
