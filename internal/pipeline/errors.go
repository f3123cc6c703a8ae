package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names a pipeline transformation.
type Stage string

const (
	StageFilter   Stage = "filter"
	StageAudio    Stage = "audio"
	StageSubtitle Stage = "subtitle"
)

// Markers matched with errors.Is against a StageError.
var (
	ErrFilterStage   = errors.New("filter stage failed")
	ErrAudioStage    = errors.New("audio stage failed")
	ErrSubtitleStage = errors.New("subtitle stage failed")
)

// StageError reports which transformation failed and the engine's reason.
type StageError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("%s stage failed: %s", e.Stage, reason)
}

// Is matches the marker for the failing stage.
func (e *StageError) Is(target error) bool {
	return target == e.marker()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) marker() error {
	switch e.Stage {
	case StageFilter:
		return ErrFilterStage
	case StageAudio:
		return ErrAudioStage
	case StageSubtitle:
		return ErrSubtitleStage
	default:
		return nil
	}
}

func stageFailure(stage Stage, err error) *StageError {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return &StageError{Stage: stage, Reason: reason, Err: err}
}
