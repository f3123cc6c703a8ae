package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"clipforge/internal/captions"
	"clipforge/internal/filters"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Engine is the media engine contract the pipeline drives. Each call reads
// input and returns the path of a newly written file.
type Engine interface {
	ApplyFilter(ctx context.Context, input string, recipe filters.Recipe) (string, error)
	MixAudio(ctx context.Context, input, audio string, multiplier float64) (string, error)
	BurnSubtitles(ctx context.Context, input string, track captions.Track) (string, error)
}

// Input describes one pipeline run.
type Input struct {
	SourcePath         string
	FilterID           string
	AudioPath          string
	Volume             int
	SubtitleText       string
	EmphasizeSubtitles bool
}

// Result reports the final artifact and the stages that ran.
type Result struct {
	OutputPath string
	Stages     []Stage
}

// ProgressFunc is called before each stage starts.
type ProgressFunc func(ctx context.Context, stage Stage)

// Runner threads a source file through filter, audio and subtitle stages.
type Runner struct {
	engine   Engine
	logger   *slog.Logger
	progress ProgressFunc
	remove   func(string) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithProgress registers a stage-start callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithRemover overrides how intermediate files are deleted.
func WithRemover(fn func(string) error) Option {
	return func(r *Runner) {
		if fn != nil {
			r.remove = fn
		}
	}
}

// NewRunner constructs a Runner around engine.
func NewRunner(engine Engine, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the stages that apply to in, in fixed order. With no stage to
// run the source path is returned unchanged. The source is never deleted;
// every intermediate file is removed once superseded or when a later stage
// fails.
func (r *Runner) Run(ctx context.Context, in Input) (Result, error) {
	source := strings.TrimSpace(in.SourcePath)
	if source == "" {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "source path is required", nil)
	}

	recipe, err := filters.Lookup(in.FilterID)
	if err != nil {
		return Result{}, stageFailure(StageFilter, err)
	}

	run := &runState{runner: r, source: source, current: source}
	defer run.discardOnFailure()

	if !recipe.IsNoop() {
		if err := run.step(ctx, StageFilter, func(stageCtx context.Context, input string) (string, error) {
			return r.engine.ApplyFilter(stageCtx, input, recipe)
		}); err != nil {
			return Result{}, err
		}
	}

	if audio := strings.TrimSpace(in.AudioPath); audio != "" {
		multiplier := volumeMultiplier(in.Volume)
		if err := run.step(ctx, StageAudio, func(stageCtx context.Context, input string) (string, error) {
			return r.engine.MixAudio(stageCtx, input, audio, multiplier)
		}); err != nil {
			return Result{}, err
		}
	}

	if track, ok := captions.Compose(in.SubtitleText, in.EmphasizeSubtitles); ok {
		if err := run.step(ctx, StageSubtitle, func(stageCtx context.Context, input string) (string, error) {
			return r.engine.BurnSubtitles(stageCtx, input, track)
		}); err != nil {
			return Result{}, err
		}
	}

	run.succeeded = true
	return Result{OutputPath: run.current, Stages: run.stages}, nil
}

type runState struct {
	runner    *Runner
	source    string
	current   string
	stages    []Stage
	succeeded bool
}

func (s *runState) step(ctx context.Context, stage Stage, fn func(context.Context, string) (string, error)) error {
	stageCtx := services.WithStage(ctx, string(stage))
	if s.runner.progress != nil {
		s.runner.progress(stageCtx, stage)
	}
	logger := logging.WithContext(stageCtx, s.runner.logger)
	logger.Debug("stage starting", logging.String("input", s.current))

	output, err := fn(stageCtx, s.current)
	if err == nil && strings.TrimSpace(output) == "" {
		err = errors.New("engine returned no output path")
	}
	if err != nil {
		logger.Warn("stage failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.String(logging.FieldImpact, "job will be marked failed"),
		)
		return stageFailure(stage, err)
	}

	previous := s.current
	s.current = output
	s.stages = append(s.stages, stage)
	s.discard(ctx, previous)
	return nil
}

func (s *runState) discardOnFailure() {
	if s.succeeded {
		return
	}
	s.discard(context.Background(), s.current)
}

// discard removes path unless it is the source.
func (s *runState) discard(ctx context.Context, path string) {
	if path == "" || path == s.source {
		return
	}
	if err := s.runner.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WithContext(ctx, s.runner.logger).Warn("intermediate cleanup failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "cleanup_failed"),
		)
	}
}

func volumeMultiplier(volume int) float64 {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float64(volume) / 100.0
}
