package jobs

import (
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of a processing job.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultVolume is applied when a job does not specify one.
const DefaultVolume = 100

// Reasons recorded when the executor did not see a run through.
const (
	StalledReason     = "processing stalled: heartbeat timeout"
	InterruptedReason = "processing interrupted: daemon restarted"
	QueueFullReason   = "processing not started: executor queue full"
	StoppedReason     = "processing not started: executor stopped"
)

var allStatuses = []Status{
	StatusDraft,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// Job is a persisted processing request.
type Job struct {
	ID                int64
	Name              string
	Status            Status
	SourceVideoPath   string
	AudioPath         string
	SubtitleText      string
	Volume            int
	FilterID          string
	UniquifySubtitles bool
	OutputPath        string
	ErrorMessage      string
	ArtifactURL       string
	Attempts          int
	ProgressStage     string
	CorrelationID     string
	LastHeartbeat     *time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Spec carries the caller-supplied fields of a new job.
type Spec struct {
	Name              string
	SourceVideoPath   string
	AudioPath         string
	SubtitleText      string
	Volume            *int
	FilterID          string
	UniquifySubtitles bool
}

// Patch lists the fields an edit may change. Nil pointers are left untouched.
type Patch struct {
	Name              *string
	AudioPath         *string
	SubtitleText      *string
	Volume            *int
	FilterID          *string
	UniquifySubtitles *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.AudioPath == nil && p.SubtitleText == nil &&
		p.Volume == nil && p.FilterID == nil && p.UniquifySubtitles == nil
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// IsProcessable reports whether a processing attempt may start from this status.
func (s Status) IsProcessable() bool {
	return CanTransition(s, StatusProcessing)
}

// IsEditable reports whether job fields may change in this status.
func (s Status) IsEditable() bool {
	return s == StatusDraft || s == StatusFailed
}

// IsProcessable reports whether the job can be submitted for processing.
func (j Job) IsProcessable() bool {
	return j.Status.IsProcessable()
}

// IsCompleted reports whether the job finished with an output.
func (j Job) IsCompleted() bool {
	return j.Status == StatusCompleted
}

func inferNameFromPath(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
