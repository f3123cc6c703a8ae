package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a processing job in a transport-friendly format.
type Job struct {
	ID                int64       `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name"`
	Status            string      `json:"status" yaml:"status"`
	SourceVideoPath   string      `json:"sourceVideoPath" yaml:"sourceVideoPath"`
	AudioPath         string      `json:"audioPath,omitempty" yaml:"audioPath,omitempty"`
	SubtitleText      string      `json:"subtitleText,omitempty" yaml:"subtitleText,omitempty"`
	Volume            int         `json:"volume" yaml:"volume"`
	FilterID          string      `json:"filterId" yaml:"filterId"`
	UniquifySubtitles bool        `json:"uniquifySubtitles" yaml:"uniquifySubtitles"`
	OutputPath        string      `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	ErrorMessage      string      `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	ArtifactURL       string      `json:"artifactUrl,omitempty" yaml:"artifactUrl,omitempty"`
	Attempts          int         `json:"attempts" yaml:"attempts"`
	Progress          JobProgress `json:"progress" yaml:"progress"`
	CreatedAt         string      `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt         string      `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	StartedAt         string      `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt        string      `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// JobProgress captures run progress for a processing job.
type JobProgress struct {
	Stage         string `json:"stage,omitempty" yaml:"stage,omitempty"`
	CorrelationID string `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty" yaml:"lastHeartbeat,omitempty"`
}

// JobEvent is one entry from a job's history.
type JobEvent struct {
	Type          string `json:"type" yaml:"type"`
	Stage         string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
	CorrelationID string `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp" yaml:"timestamp"`
}

// WorkflowStatus summarizes executor state.
type WorkflowStatus struct {
	Running     bool              `json:"running" yaml:"running"`
	Workers     int               `json:"workers" yaml:"workers"`
	QueueDepth  int               `json:"queueDepth" yaml:"queueDepth"`
	Active      map[string]string `json:"active,omitempty" yaml:"active,omitempty"`
	JobStats    map[string]int    `json:"jobStats" yaml:"jobStats"`
	LastError   string            `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	LastJob     *Job              `json:"lastJob,omitempty" yaml:"lastJob,omitempty"`
	StageHealth []StageHealth     `json:"stageHealth" yaml:"stageHealth"`
}

// StageHealth mirrors readiness reporting for pipeline dependencies.
type StageHealth struct {
	Name   string `json:"name" yaml:"name"`
	Ready  bool   `json:"ready" yaml:"ready"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name" yaml:"name"`
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description" yaml:"description"`
	Optional    bool   `json:"optional" yaml:"optional"`
	Available   bool   `json:"available" yaml:"available"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Detail      string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// DatabaseHealth reports job database diagnostics.
type DatabaseHealth struct {
	Path          string `json:"path" yaml:"path"`
	SizeBytes     int64  `json:"sizeBytes" yaml:"sizeBytes"`
	SchemaVersion int    `json:"schemaVersion" yaml:"schemaVersion"`
	Integrity     string `json:"integrity" yaml:"integrity"`
	TotalJobs     int    `json:"totalJobs" yaml:"totalJobs"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running" yaml:"running"`
	PID          int                `json:"pid" yaml:"pid"`
	DatabasePath string             `json:"databasePath" yaml:"databasePath"`
	LockFilePath string             `json:"lockFilePath" yaml:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow" yaml:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies" yaml:"dependencies"`
}

// Filter describes one registry entry.
type Filter struct {
	ID    string `json:"id" yaml:"id"`
	Graph string `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// MediaInfo reports inspected media properties.
type MediaInfo struct {
	Path            string  `json:"path" yaml:"path"`
	DurationSeconds float64 `json:"durationSeconds" yaml:"durationSeconds"`
	Width           int     `json:"width" yaml:"width"`
	Height          int     `json:"height" yaml:"height"`
	Codec           string  `json:"codec" yaml:"codec"`
	FPS             float64 `json:"fps" yaml:"fps"`
	SizeBytes       int64   `json:"sizeBytes" yaml:"sizeBytes"`
	AudioStreams    int     `json:"audioStreams" yaml:"audioStreams"`
}

// Export describes where a completed job's output can be fetched.
type Export struct {
	JobID       int64  `json:"jobId" yaml:"jobId"`
	OutputPath  string `json:"outputPath" yaml:"outputPath"`
	ArtifactURL string `json:"artifactUrl,omitempty" yaml:"artifactUrl,omitempty"`
	SizeBytes   int64  `json:"sizeBytes" yaml:"sizeBytes"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job" yaml:"job"`
}

// JobEventsResponse wraps a job's history.
type JobEventsResponse struct {
	JobID  int64      `json:"jobId" yaml:"jobId"`
	Events []JobEvent `json:"events" yaml:"events"`
}

// FiltersResponse lists the available filters.
type FiltersResponse struct {
	Filters []Filter `json:"filters" yaml:"filters"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error" yaml:"error"`
}
