// Package pipeline runs the ordered media transformations of a job:
// visual filter, then audio mix, then subtitle burn.
//
// Stages whose input is absent are skipped. Each stage reads the previous
// stage's output; superseded intermediates are deleted as soon as the next
// stage succeeds and any leftover intermediate is deleted when a stage
// fails. Failures surface as *StageError values matching ErrFilterStage,
// ErrAudioStage or ErrSubtitleStage.
package pipeline
