package api

import (
	"clipforge/internal/jobs"
)

// CreateJobRequest is the body of POST /api/jobs.
type CreateJobRequest struct {
	Name              string `json:"name"`
	SourceVideoPath   string `json:"sourceVideoPath"`
	AudioPath         string `json:"audioPath"`
	SubtitleText      string `json:"subtitleText"`
	Volume            *int   `json:"volume"`
	FilterID          string `json:"filterId"`
	UniquifySubtitles bool   `json:"uniquifySubtitles"`
}

// Spec converts the request into a jobs.Spec.
func (r CreateJobRequest) Spec() jobs.Spec {
	return jobs.Spec{
		Name:              r.Name,
		SourceVideoPath:   r.SourceVideoPath,
		AudioPath:         r.AudioPath,
		SubtitleText:      r.SubtitleText,
		Volume:            r.Volume,
		FilterID:          r.FilterID,
		UniquifySubtitles: r.UniquifySubtitles,
	}
}

// UpdateJobRequest is the body of PATCH /api/jobs/{id}. Omitted fields are unchanged.
type UpdateJobRequest struct {
	Name              *string `json:"name"`
	AudioPath         *string `json:"audioPath"`
	SubtitleText      *string `json:"subtitleText"`
	Volume            *int    `json:"volume"`
	FilterID          *string `json:"filterId"`
	UniquifySubtitles *bool   `json:"uniquifySubtitles"`
}

// Patch converts the request into a jobs.Patch.
func (r UpdateJobRequest) Patch() jobs.Patch {
	return jobs.Patch{
		Name:              r.Name,
		AudioPath:         r.AudioPath,
		SubtitleText:      r.SubtitleText,
		Volume:            r.Volume,
		FilterID:          r.FilterID,
		UniquifySubtitles: r.UniquifySubtitles,
	}
}
