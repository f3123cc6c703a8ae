package jobs

import (
	"fmt"
	"sort"
	"strings"
)

// transitions lists the legal status edges driven by the executor. Reset to
// draft is an administrative operation handled by Store.ResetToDraft.
var transitions = map[Status][]Status{
	StatusDraft:      {StatusProcessing},
	StatusFailed:     {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sourcesFor returns every status that may move into to, in stable order.
func sourcesFor(to Status) []Status {
	var out []Status
	for from, targets := range transitions {
		for _, target := range targets {
			if target == to {
				out = append(out, from)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Transition applies a state machine edge to the in-memory job. detail is the
// output path when entering completed and the failure reason when entering
// failed. The job is left unchanged when the edge is not allowed.
func (j *Job) Transition(to Status, detail string) error {
	if j == nil {
		return fmt.Errorf("%w: nil job", ErrInvalidTransition)
	}
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	detail = strings.TrimSpace(detail)
	switch to {
	case StatusProcessing:
		j.ErrorMessage = ""
		j.OutputPath = ""
		j.ArtifactURL = ""
	case StatusCompleted:
		if detail == "" {
			return fmt.Errorf("%w: completed requires an output path", ErrInvalidTransition)
		}
		j.OutputPath = detail
		j.ErrorMessage = ""
		j.ProgressStage = ""
		j.LastHeartbeat = nil
	case StatusFailed:
		if detail == "" {
			detail = "processing failed"
		}
		j.ErrorMessage = detail
		j.OutputPath = ""
		j.ArtifactURL = ""
		j.ProgressStage = ""
		j.LastHeartbeat = nil
	}
	j.Status = to
	return nil
}
