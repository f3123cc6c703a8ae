package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"clipforge/internal/captions"
	"clipforge/internal/filters"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

var outputPattern = regexp.MustCompile(`^[a-z]+_\d{8}_\d{6}_[0-9a-f]{8}\.mp4$`)

type recordedCall struct {
	name string
	args []string
}

// fakeRunner writes the final argument (the temp output) and records the call.
func fakeRunner(calls *[]recordedCall, fail error) ffmpeg.CommandRunner {
	return func(ctx context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedCall{name: name, args: append([]string(nil), args...)})
		if fail != nil {
			_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
			return fail
		}
		return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
	}
}

func newEngine(t *testing.T, calls *[]recordedCall, fail error) (*ffmpeg.Engine, string, string) {
	t.Helper()
	base := t.TempDir()
	source := filepath.Join(base, "source.mp4")
	testsupport.WriteFile(t, source, 64)
	outDir := filepath.Join(base, "out")
	engine := ffmpeg.New(ffmpeg.Options{OutputDir: outDir})
	engine.WithCommandRunner(fakeRunner(calls, fail))
	return engine, source, outDir
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestApplyFilterWritesNewOutput(t *testing.T) {
	var calls []recordedCall
	engine, source, outDir := newEngine(t, &calls, nil)

	recipe, err := filters.Lookup("cinematic")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	output, err := engine.ApplyFilter(context.Background(), source, recipe)
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	if filepath.Dir(output) != outDir {
		t.Fatalf("expected output under %s, got %s", outDir, output)
	}
	if !outputPattern.MatchString(filepath.Base(output)) || !strings.HasPrefix(filepath.Base(output), "filtered_") {
		t.Fatalf("unexpected output name %q", filepath.Base(output))
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if _, err := os.Stat(output + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp file renamed away, got %v", err)
	}
	if len(calls) != 1 || calls[0].name != "ffmpeg" {
		t.Fatalf("unexpected calls: %#v", calls)
	}
	args := calls[0].args
	if argValue(args, "-vf") != recipe.Graph || argValue(args, "-c:v") != "libx264" || argValue(args, "-c:a") != "copy" {
		t.Fatalf("unexpected filter args: %v", args)
	}
	if argValue(args, "-i") != source {
		t.Fatalf("expected source input, got %v", args)
	}
}

func TestMixAudioArguments(t *testing.T) {
	var calls []recordedCall
	engine, source, _ := newEngine(t, &calls, nil)
	audio := filepath.Join(filepath.Dir(source), "track.mp3")
	testsupport.WriteFile(t, audio, 32)

	output, err := engine.MixAudio(context.Background(), source, audio, 0.5)
	if err != nil {
		t.Fatalf("MixAudio: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(output), "mixed_") {
		t.Fatalf("unexpected output name %q", output)
	}
	joined := strings.Join(calls[0].args, " ")
	for _, want := range []string{"-filter:a volume=0.5", "-map 0:v:0", "-map 1:a:0", "-c:a aac", "-shortest", "-i " + audio} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args: %s", want, joined)
		}
	}
}

func TestBurnSubtitlesRemovesSRT(t *testing.T) {
	var calls []recordedCall
	engine, source, outDir := newEngine(t, &calls, nil)

	track, _ := captions.Compose("Hello there", true)
	output, err := engine.BurnSubtitles(context.Background(), source, track)
	if err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	vf := argValue(calls[0].args, "-vf")
	if !strings.HasPrefix(vf, "subtitles=") || !strings.Contains(vf, "force_style='"+captions.EmphasizedStyle+"'") {
		t.Fatalf("unexpected subtitle filter: %s", vf)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != filepath.Base(output) {
		t.Fatalf("expected only the output to remain, got %v", entries)
	}
}

func TestBurnSubtitlesEscapesPathForFiltergraph(t *testing.T) {
	var calls []recordedCall
	base := filepath.Join(t.TempDir(), "clips:2024 it's")
	source := filepath.Join(base, "source.mp4")
	testsupport.WriteFile(t, source, 64)
	engine := ffmpeg.New(ffmpeg.Options{OutputDir: base})
	engine.WithCommandRunner(fakeRunner(&calls, nil))

	track, _ := captions.Compose("Hi", false)
	if _, err := engine.BurnSubtitles(context.Background(), source, track); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	vf := argValue(calls[0].args, "-vf")
	if want := `clips\\:2024 it\\\'s`; !strings.Contains(vf, want) {
		t.Fatalf("expected doubly escaped path %q in %s", want, vf)
	}
	option := strings.TrimSuffix(strings.TrimPrefix(vf, "subtitles="), ":force_style='"+captions.StandardStyle+"'")
	if strings.Count(option, `\\:`) != 1 {
		t.Fatalf("expected a single escaped separator in the path, got %s", option)
	}
}

func TestTransformFailureRemovesPartialOutput(t *testing.T) {
	var calls []recordedCall
	engine, source, outDir := newEngine(t, &calls, errors.New("exit status 1: line1\nInvalid data found"))

	recipe, _ := filters.Lookup("warm")
	_, err := engine.ApplyFilter(context.Background(), source, recipe)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Fatalf("expected no residual files, got %v", entries)
	}
}

func TestTransformMissingInput(t *testing.T) {
	var calls []recordedCall
	engine, source, _ := newEngine(t, &calls, nil)

	_, err := engine.MixAudio(context.Background(), source, filepath.Join(t.TempDir(), "missing.mp3"), 1)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected ffmpeg not to run, got %d calls", len(calls))
	}
}

func TestTransformTimeout(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source.mp4")
	testsupport.WriteFile(t, source, 16)
	engine := ffmpeg.New(ffmpeg.Options{OutputDir: filepath.Join(base, "out"), StageTimeout: 10 * time.Millisecond})
	engine.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	recipe, _ := filters.Lookup("cool")
	if _, err := engine.ApplyFilter(context.Background(), source, recipe); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
