package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/captions"
	"clipforge/internal/filters"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

const (
	defaultBinary      = "ffmpeg"
	defaultProbeBinary = "ffprobe"
	defaultVideoCodec  = "libx264"
	defaultAudioCodec  = "aac"
	stderrTailLines    = 12
)

// Output name prefixes per transformation.
const (
	filteredPrefix  = "filtered"
	mixedPrefix     = "mixed"
	subtitledPrefix = "subtitled"
)

// CommandRunner executes an external command. It returns an error carrying
// the command's diagnostic output when the process fails.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Options configure an Engine.
type Options struct {
	Binary       string
	ProbeBinary  string
	OutputDir    string
	VideoCodec   string
	AudioCodec   string
	StageTimeout time.Duration
	Logger       *slog.Logger
}

// Engine runs single media transformations through ffmpeg. Every call writes
// a fresh file under the output directory and never modifies its inputs.
type Engine struct {
	binary      string
	probeBinary string
	outputDir   string
	videoCodec  string
	audioCodec  string
	timeout     time.Duration
	logger      *slog.Logger
	run         CommandRunner
	now         func() time.Time
}

// New constructs an Engine from opts, applying defaults for empty fields.
func New(opts Options) *Engine {
	e := &Engine{
		binary:      firstNonEmpty(opts.Binary, defaultBinary),
		probeBinary: firstNonEmpty(opts.ProbeBinary, defaultProbeBinary),
		outputDir:   strings.TrimSpace(opts.OutputDir),
		videoCodec:  firstNonEmpty(opts.VideoCodec, defaultVideoCodec),
		audioCodec:  firstNonEmpty(opts.AudioCodec, defaultAudioCodec),
		timeout:     opts.StageTimeout,
		logger:      logging.NewComponentLogger(opts.Logger, "ffmpeg"),
		run:         defaultCommandRunner,
		now:         time.Now,
	}
	if e.outputDir == "" {
		e.outputDir = os.TempDir()
	}
	return e
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Engine) WithCommandRunner(r CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// OutputDir returns the directory receiving engine outputs.
func (e *Engine) OutputDir() string {
	return e.outputDir
}

// ApplyFilter re-encodes input through the recipe's filter graph.
func (e *Engine) ApplyFilter(ctx context.Context, input string, recipe filters.Recipe) (string, error) {
	if recipe.IsNoop() {
		return "", services.Wrap(services.ErrValidation, "filter", "apply", "no-op filter has no graph", nil)
	}
	args := []string{
		"-i", input,
		"-vf", recipe.Graph,
		"-c:v", e.videoCodec,
		"-c:a", "copy",
	}
	return e.transform(ctx, "filter", filteredPrefix, []string{input}, args, nil)
}

// MixAudio replaces the video's audio with audio scaled by multiplier (0.0-1.0).
// The output is trimmed to the shorter of the two inputs.
func (e *Engine) MixAudio(ctx context.Context, input, audio string, multiplier float64) (string, error) {
	if multiplier < 0 {
		multiplier = 0
	}
	args := []string{
		"-i", input,
		"-i", audio,
		"-filter:a", "volume=" + strconv.FormatFloat(multiplier, 'f', -1, 64),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", e.videoCodec,
		"-c:a", e.audioCodec,
		"-shortest",
	}
	return e.transform(ctx, "audio", mixedPrefix, []string{input, audio}, args, nil)
}

// BurnSubtitles renders track onto the video frames.
func (e *Engine) BurnSubtitles(ctx context.Context, input string, track captions.Track) (string, error) {
	if strings.TrimSpace(track.Text) == "" {
		return "", services.Wrap(services.ErrValidation, "subtitle", "burn", "empty caption track", nil)
	}
	var srtPath string
	prepare := func(output string) ([]string, func(), error) {
		srtPath = strings.TrimSuffix(output, filepath.Ext(output)) + ".srt"
		if err := os.WriteFile(srtPath, []byte(track.SRT()), 0o644); err != nil {
			return nil, nil, services.Wrap(services.ErrTransient, "subtitle", "write srt", srtPath, err)
		}
		cleanup := func() {
			if err := os.Remove(srtPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				e.logger.Warn("subtitle file cleanup failed",
					logging.String("path", srtPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "cleanup_failed"),
				)
			}
		}
		vf := fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterValue(srtPath), track.Style)
		return []string{
			"-i", input,
			"-vf", vf,
			"-c:v", e.videoCodec,
			"-c:a", "copy",
		}, cleanup, nil
	}
	return e.transform(ctx, "subtitle", subtitledPrefix, []string{input}, nil, prepare)
}

// Inspect reports media properties via ffprobe.
func (e *Engine) Inspect(ctx context.Context, path string) (ffprobe.Info, error) {
	if _, err := os.Stat(path); err != nil {
		return ffprobe.Info{}, services.Wrap(services.ErrNotFound, "inspect", "stat", path, err)
	}
	result, err := ffprobe.Inspect(ctx, e.probeBinary, path)
	if err != nil {
		return ffprobe.Info{}, services.Wrap(services.ErrExternalTool, "inspect", "ffprobe", path, err)
	}
	return result.Summary(), nil
}

type argsBuilder func(output string) ([]string, func(), error)

// transform runs one ffmpeg invocation into a temp file and renames it into
// place. Partial output is removed on failure.
func (e *Engine) transform(ctx context.Context, stage, prefix string, inputs, args []string, build argsBuilder) (string, error) {
	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil {
			return "", services.Wrap(services.ErrNotFound, stage, "stat input", input, err)
		}
	}
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stage, "create output dir", e.outputDir, err)
	}

	output := filepath.Join(e.outputDir, e.outputName(prefix))
	if build != nil {
		built, cleanup, err := build(output)
		if err != nil {
			return "", err
		}
		if cleanup != nil {
			defer cleanup()
		}
		args = built
	}

	tmpPath := output + ".tmp"
	full := make([]string, 0, len(args)+8)
	full = append(full, "-y", "-hide_banner", "-loglevel", "error")
	full = append(full, args...)
	full = append(full, "-f", "mp4", tmpPath)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("executing ffmpeg",
		logging.Stage(stage),
		logging.String("output", output),
		logging.String("args", strings.Join(full, " ")),
	)

	started := time.Now()
	if err := e.run(runCtx, e.binary, full...); err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, stage, "ffmpeg", fmt.Sprintf("exceeded %s", e.timeout), err)
		}
		return "", services.Wrap(services.ErrExternalTool, stage, "ffmpeg", tailLines(err.Error(), stderrTailLines), nil)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "ffmpeg", "no output produced", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, stage, "finalize output", output, err)
	}

	logger.Info("ffmpeg stage finished",
		logging.Stage(stage),
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}

// outputName yields <prefix>_<YYYYMMDD_HHMMSS>_<uuid8>.mp4.
func (e *Engine) outputName(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s.mp4", prefix, e.now().Format("20060102_150405"), id)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterValue escapes value for use as a filter option inside -vf.
// ffmpeg unescapes once for the filtergraph and once for the option list.
func escapeFilterValue(value string) string {
	return graphEscaper.Replace(optionEscaper.Replace(value))
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
