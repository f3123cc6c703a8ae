package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/captions"
	"clipforge/internal/filters"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/testsupport"
)

// fakeEngine writes "<input stem>_<suffix>.mp4" next to the input and records calls.
type fakeEngine struct {
	calls       []string
	multiplier  float64
	track       captions.Track
	failOn      pipeline.Stage
	failMessage string
}

func (f *fakeEngine) produce(stage pipeline.Stage, input, suffix string) (string, error) {
	f.calls = append(f.calls, string(stage)+":"+filepath.Base(input))
	if f.failOn == stage {
		return "", errors.New(f.failMessage)
	}
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	out := stem + "_" + suffix + ".mp4"
	return out, os.WriteFile(out, []byte(suffix), 0o644)
}

func (f *fakeEngine) ApplyFilter(_ context.Context, input string, recipe filters.Recipe) (string, error) {
	return f.produce(pipeline.StageFilter, input, "f")
}

func (f *fakeEngine) MixAudio(_ context.Context, input, audio string, multiplier float64) (string, error) {
	f.multiplier = multiplier
	return f.produce(pipeline.StageAudio, input, "m")
}

func (f *fakeEngine) BurnSubtitles(_ context.Context, input string, track captions.Track) (string, error) {
	f.track = track
	return f.produce(pipeline.StageSubtitle, input, "s")
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.mp4")
	testsupport.WriteFile(t, path, 128)
	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestRunAudioThenSubtitle(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{}
	var progress []pipeline.Stage
	runner := pipeline.NewRunner(engine, logging.NewNop(), pipeline.WithProgress(func(_ context.Context, stage pipeline.Stage) {
		progress = append(progress, stage)
	}))

	result, err := runner.Run(context.Background(), pipeline.Input{
		SourcePath:   source,
		FilterID:     "none",
		AudioPath:    "/music/b.mp3",
		Volume:       50,
		SubtitleText: "Hi",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(result.OutputPath) != "a_m_s.mp4" {
		t.Fatalf("unexpected output %q", result.OutputPath)
	}
	if got := strings.Join(engine.calls, ","); got != "audio:a.mp4,subtitle:a_m.mp4" {
		t.Fatalf("unexpected call order: %s", got)
	}
	if engine.multiplier != 0.5 {
		t.Fatalf("expected multiplier 0.5, got %v", engine.multiplier)
	}
	if engine.track.Text != "Hi" || engine.track.Style != captions.StandardStyle {
		t.Fatalf("unexpected caption track: %#v", engine.track)
	}
	if len(progress) != 2 || progress[0] != pipeline.StageAudio || progress[1] != pipeline.StageSubtitle {
		t.Fatalf("unexpected progress: %v", progress)
	}
	if got := strings.Join(listDir(t, filepath.Dir(source)), ","); got != "a.mp4,a_m_s.mp4" {
		t.Fatalf("expected intermediate removed, dir holds %s", got)
	}
}

func TestRunAllStagesInOrder(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{}
	runner := pipeline.NewRunner(engine, nil)

	result, err := runner.Run(context.Background(), pipeline.Input{
		SourcePath:         source,
		FilterID:           "Vintage",
		AudioPath:          "/music/b.mp3",
		Volume:             100,
		SubtitleText:       "Caption",
		EmphasizeSubtitles: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(engine.calls, ","); got != "filter:a.mp4,audio:a_f.mp4,subtitle:a_f_m.mp4" {
		t.Fatalf("unexpected call order: %s", got)
	}
	if len(result.Stages) != 3 {
		t.Fatalf("expected three stages, got %v", result.Stages)
	}
	if engine.track.Style != captions.EmphasizedStyle {
		t.Fatalf("expected emphasized style, got %q", engine.track.Style)
	}
	if got := strings.Join(listDir(t, filepath.Dir(source)), ","); got != "a.mp4,a_f_m_s.mp4" {
		t.Fatalf("unexpected directory contents: %s", got)
	}
}

func TestRunNoStagesReturnsSource(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{}
	runner := pipeline.NewRunner(engine, nil)

	result, err := runner.Run(context.Background(), pipeline.Input{SourcePath: source, FilterID: "", SubtitleText: "   "})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.OutputPath != source {
		t.Fatalf("expected source path, got %q", result.OutputPath)
	}
	if len(engine.calls) != 0 {
		t.Fatalf("expected no engine calls, got %v", engine.calls)
	}
}

func TestRunAudioFailureCleansUp(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{failOn: pipeline.StageAudio, failMessage: "Stream map '1:a:0' matches no streams"}
	runner := pipeline.NewRunner(engine, nil)

	_, err := runner.Run(context.Background(), pipeline.Input{
		SourcePath:   source,
		FilterID:     "bright",
		AudioPath:    "/music/b.mp3",
		Volume:       80,
		SubtitleText: "never burned",
	})
	if !errors.Is(err, pipeline.ErrAudioStage) {
		t.Fatalf("expected ErrAudioStage, got %v", err)
	}
	if errors.Is(err, pipeline.ErrFilterStage) {
		t.Fatal("audio failure must not match the filter marker")
	}
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != pipeline.StageAudio {
		t.Fatalf("expected StageError for audio, got %#v", err)
	}
	if err.Error() != "audio stage failed: Stream map '1:a:0' matches no streams" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := strings.Join(engine.calls, ","); got != "filter:a.mp4,audio:a_f.mp4" {
		t.Fatalf("subtitle stage should not run, calls: %s", got)
	}
	if got := strings.Join(listDir(t, filepath.Dir(source)), ","); got != "a.mp4" {
		t.Fatalf("expected only the source to remain, got %s", got)
	}
}

func TestRunUnknownFilterRejectedBeforeEngine(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{}
	runner := pipeline.NewRunner(engine, nil)

	_, err := runner.Run(context.Background(), pipeline.Input{SourcePath: source, FilterID: "sepia"})
	if !errors.Is(err, pipeline.ErrFilterStage) || !errors.Is(err, filters.ErrUnknownFilter) {
		t.Fatalf("expected filter stage error wrapping ErrUnknownFilter, got %v", err)
	}
	if len(engine.calls) != 0 {
		t.Fatalf("expected no engine calls, got %v", engine.calls)
	}
}

func TestRunCleanupFailureIsNotFatal(t *testing.T) {
	source := sourceFile(t)
	engine := &fakeEngine{}
	runner := pipeline.NewRunner(engine, nil, pipeline.WithRemover(func(string) error {
		return errors.New("permission denied")
	}))

	result, err := runner.Run(context.Background(), pipeline.Input{SourcePath: source, FilterID: "cool", SubtitleText: "x"})
	if err != nil {
		t.Fatalf("cleanup failure must not fail the run: %v", err)
	}
	if filepath.Base(result.OutputPath) != "a_f_s.mp4" {
		t.Fatalf("unexpected output %q", result.OutputPath)
	}
}

func TestStageErrorMessageFallsBackToWrapped(t *testing.T) {
	err := &pipeline.StageError{Stage: pipeline.StageSubtitle, Err: errors.New("font missing")}
	if err.Error() != "subtitle stage failed: font missing" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, pipeline.ErrSubtitleStage) {
		t.Fatal("expected subtitle marker match")
	}
}
