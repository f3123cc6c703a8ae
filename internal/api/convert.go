package api

import (
	"slices"
	"strconv"
	"time"

	"clipforge/internal/deps"
	"clipforge/internal/filters"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:                job.ID,
		Name:              job.Name,
		Status:            string(job.Status),
		SourceVideoPath:   job.SourceVideoPath,
		AudioPath:         job.AudioPath,
		SubtitleText:      job.SubtitleText,
		Volume:            job.Volume,
		FilterID:          job.FilterID,
		UniquifySubtitles: job.UniquifySubtitles,
		OutputPath:        job.OutputPath,
		ErrorMessage:      job.ErrorMessage,
		ArtifactURL:       job.ArtifactURL,
		Attempts:          job.Attempts,
		Progress: JobProgress{
			Stage:         job.ProgressStage,
			CorrelationID: job.CorrelationID,
			LastHeartbeat: formatOptionalTime(job.LastHeartbeat),
		},
		StartedAt:  formatOptionalTime(job.StartedAt),
		FinishedAt: formatOptionalTime(job.FinishedAt),
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(items []*jobs.Job) []Job {
	out := make([]Job, 0, len(items))
	for _, job := range items {
		out = append(out, FromJob(job))
	}
	return out
}

// FromEvents converts history events into API DTOs.
func FromEvents(events []history.Event) []JobEvent {
	out := make([]JobEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, JobEvent{
			Type:          string(ev.Type),
			Stage:         ev.Stage,
			Message:       ev.Message,
			CorrelationID: ev.CorrelationID,
			Timestamp:     ev.Timestamp.UTC().Format(dateTimeFormat),
		})
	}
	return out
}

// FromMediaInfo converts an ffprobe summary for path.
func FromMediaInfo(path string, info ffprobe.Info) MediaInfo {
	return MediaInfo{
		Path:            path,
		DurationSeconds: info.DurationSeconds,
		Width:           info.Width,
		Height:          info.Height,
		Codec:           info.Codec,
		FPS:             info.FPS,
		SizeBytes:       info.SizeBytes,
		AudioStreams:    info.AudioStreams,
	}
}

// FilterList returns every registered filter in declaration order.
func FilterList() []Filter {
	kinds := filters.All()
	out := make([]Filter, 0, len(kinds))
	for _, kind := range kinds {
		recipe, err := filters.Lookup(string(kind))
		if err != nil {
			continue
		}
		out = append(out, Filter{ID: string(kind), Graph: recipe.Graph})
	}
	return out
}

// MergeJobStats normalizes stats into a string-keyed map including every status.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromStatusSummary converts a workflow status summary to its API shape.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     summary.Running,
		Workers:     summary.Workers,
		QueueDepth:  summary.QueueDepth,
		JobStats:    MergeJobStats(summary.JobStats),
		LastError:   summary.LastError,
		StageHealth: make([]StageHealth, 0, len(summary.StageHealth)),
	}
	if len(summary.Active) > 0 {
		status.Active = make(map[string]string, len(summary.Active))
		for id, stage := range summary.Active {
			status.Active[strconv.FormatInt(id, 10)] = stage
		}
	}
	if summary.LastJob != nil {
		job := FromJob(summary.LastJob)
		status.LastJob = &job
	}
	for _, h := range summary.StageHealth {
		status.StageHealth = append(status.StageHealth, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	slices.SortFunc(status.StageHealth, func(a, b StageHealth) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return status
}

func formatOptionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromDatabaseHealth converts store diagnostics into the API shape.
func FromDatabaseHealth(h jobs.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		Path:          h.DBPath,
		SizeBytes:     h.DatabaseSize,
		SchemaVersion: h.SchemaVersion,
		Integrity:     h.Integrity,
		TotalJobs:     h.TotalJobs,
	}
}

// FromDependencies converts binary checks to their API representation.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description(),
			Optional:    dep.Optional,
			Available:   dep.Available,
			Path:        dep.Path,
			Detail:      dep.Detail,
		})
	}
	return out
}
