package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"clipforge/internal/api"
	"clipforge/internal/captions"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/filters"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type copyEngine struct {
	dir string
}

func (e copyEngine) write(stage string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(e.dir, fmt.Sprintf("%s_%d.mp4", stage, time.Now().UnixNano()))
	return out, os.WriteFile(out, []byte(stage), 0o644)
}

func (e copyEngine) ApplyFilter(context.Context, string, filters.Recipe) (string, error) {
	return e.write("filtered")
}

func (e copyEngine) MixAudio(context.Context, string, string, float64) (string, error) {
	return e.write("mixed")
}

func (e copyEngine) BurnSubtitles(context.Context, string, captions.Track) (string, error) {
	return e.write("subtitled")
}

func copyEngineFactory(dir string) pipeline.Engine { return copyEngine{dir: dir} }

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	source     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	source := testsupport.WriteClip(t, cfg, "clip.mp4")

	prev := localEngineFactory
	localEngineFactory = copyEngineFactory
	t.Cleanup(func() { localEngineFactory = prev })

	return &cliTestEnv{cfg: cfg, configPath: configPath, source: source}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nstate_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[workflow]\nheartbeat_interval = %d\nheartbeat_timeout = %d\n",
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Workflow.HeartbeatInterval,
		cfg.Workflow.HeartbeatTimeout,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func TestLocalJobLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"job", "create", "--source", env.source, "--name", "Intro", "--filter", "warm"}, env.configPath)
	if err != nil {
		t.Fatalf("job create: %v", err)
	}
	requireContains(t, out, "Created job 1 (Intro)")

	out, _, err = runCLI(t, []string{"job", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("job list: %v", err)
	}
	requireContains(t, out, "Intro")
	requireContains(t, out, "Draft")

	out, _, err = runCLI(t, []string{"job", "update", "1", "--subtitle", "hello world", "--volume", "40"}, env.configPath)
	if err != nil {
		t.Fatalf("job update: %v", err)
	}
	requireContains(t, out, "Updated job 1")

	out, _, err = runCLI(t, []string{"-o", "json", "job", "show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job show: %v", err)
	}
	job := decodeJSON[api.Job](t, out)
	if job.SubtitleText != "hello world" || job.Volume != 40 || job.FilterID != "warm" {
		t.Fatalf("unexpected job after update: %+v", job)
	}

	out, _, err = runCLI(t, []string{"job", "process", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job process: %v", err)
	}
	requireContains(t, out, "Job 1 completed:")
	requireContains(t, out, "subtitled_")

	out, _, err = runCLI(t, []string{"job", "history", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job history: %v", err)
	}
	for _, want := range []string{string(history.EventCreated), string(history.EventUpdated), string(history.EventStageStarted), string(history.EventCompleted)} {
		requireContains(t, out, want)
	}

	out, _, err = runCLI(t, []string{"-o", "json", "job", "export", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job export: %v", err)
	}
	export := decodeJSON[api.Export](t, out)
	if export.JobID != 1 || export.SizeBytes != int64(len("subtitled")) {
		t.Fatalf("unexpected export: %+v", export)
	}

	copyDir := filepath.Join(t.TempDir(), "exports") + "/"
	out, _, err = runCLI(t, []string{"-o", "json", "job", "export", "1", "--copy-to", copyDir}, env.configPath)
	if err != nil {
		t.Fatalf("job export --copy-to: %v", err)
	}
	copied := decodeJSON[api.Export](t, out)
	if filepath.Dir(copied.OutputPath) != filepath.Clean(copyDir) || copied.SizeBytes != export.SizeBytes {
		t.Fatalf("unexpected copied export: %+v", copied)
	}
	if data, err := os.ReadFile(copied.OutputPath); err != nil || string(data) != "subtitled" {
		t.Fatalf("copied output mismatch: %q, %v", data, err)
	}

	if _, _, err := runCLI(t, []string{"job", "update", "1", "--name", "late"}, env.configPath); err == nil {
		t.Fatal("expected update of a completed job to fail")
	}

	out, _, err = runCLI(t, []string{"job", "reset", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job reset: %v", err)
	}
	requireContains(t, out, "Job 1 reset to draft")

	out, _, err = runCLI(t, []string{"job", "delete", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job delete: %v", err)
	}
	requireContains(t, out, "Deleted job 1")

	if _, _, err := runCLI(t, []string{"job", "show", "1"}, env.configPath); err == nil {
		t.Fatal("expected show of a deleted job to fail")
	}
}

func TestLocalProcessWithoutStagesKeepsSource(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"job", "create", "--source", env.source}, env.configPath); err != nil {
		t.Fatalf("job create: %v", err)
	}
	out, _, err := runCLI(t, []string{"-o", "yaml", "job", "process", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("job process: %v", err)
	}
	var job api.Job
	if err := yaml.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode yaml %q: %v", out, err)
	}
	if job.Status != "completed" || job.OutputPath != env.source {
		t.Fatalf("expected completed job writing to source, got %+v", job)
	}
}

func TestJobCreateValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"job", "create", "--source", env.source, "--filter", "sepia"}, env.configPath); err == nil {
		t.Fatal("expected unknown filter to be rejected")
	}
	if _, _, err := runCLI(t, []string{"job", "create", "--source", env.source, "--volume", "140"}, env.configPath); err == nil {
		t.Fatal("expected out of range volume to be rejected")
	}
	if _, _, err := runCLI(t, []string{"job", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status filter to be rejected")
	}
	if _, _, err := runCLI(t, []string{"-o", "xml", "filters"}, env.configPath); err == nil {
		t.Fatal("expected unknown output format to be rejected")
	}
}

func TestFiltersCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"-o", "json", "filters"}, "")
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	resp := decodeJSON[api.FiltersResponse](t, out)
	if len(resp.Filters) != len(filters.All()) {
		t.Fatalf("expected %d filters, got %d", len(filters.All()), len(resp.Filters))
	}

	out, _, err = runCLI(t, []string{"filters"}, "")
	if err != nil {
		t.Fatalf("filters table: %v", err)
	}
	requireContains(t, out, "cinematic")
	requireContains(t, out, "(passthrough)")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "clipforge.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init without --overwrite to refuse an existing file")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("CLIPFORGE_API_TOKEN", "super-secret-token")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret-token") {
		t.Fatalf("expected api token to be redacted: %s", out)
	}
	requireContains(t, out, env.cfg.Paths.OutputDir)
}

func TestRemoteJobsGoThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	events, err := history.Open(env.cfg.EventsDir())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	logger := logging.NewNop()
	mgr := workflow.NewManager(env.cfg, store, logger,
		workflow.WithHistory(events),
		workflow.WithEngineFactory(copyEngineFactory),
	)
	d, err := daemon.New(env.cfg, store, events, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		_ = d.Close()
	})

	remoteCfg := *env.cfg
	remoteCfg.Paths.APIBind = d.APIAddress()
	writeTestConfig(t, env.configPath, &remoteCfg)

	out, _, err := runCLI(t, []string{"job", "create", "--source", env.source, "--filter", "cinematic"}, env.configPath)
	if err != nil {
		t.Fatalf("remote create: %v", err)
	}
	requireContains(t, out, "Created job 1")

	out, _, err = runCLI(t, []string{"job", "process", "1", "--wait", "--timeout", "10s"}, env.configPath)
	if err != nil {
		t.Fatalf("remote process: %v", err)
	}
	requireContains(t, out, "Job 1 completed:")
	requireContains(t, out, "filtered_")

	out, _, err = runCLI(t, []string{"job", "history", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("remote history: %v", err)
	}
	requireContains(t, out, string(history.EventCompleted))

	out, _, err = runCLI(t, []string{"-o", "json", "daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	status := decodeJSON[api.DaemonStatus](t, out)
	if !status.Running || status.Workflow.JobStats["completed"] != 1 {
		t.Fatalf("unexpected daemon status: %+v", status)
	}

	if _, _, err := runCLI(t, []string{"job", "show", "42"}, env.configPath); err == nil {
		t.Fatal("expected remote show of a missing job to fail")
	}
}

func TestDaemonStatusWhenStopped(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestLogsCommandFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	content := strings.Join([]string{
		"2026-10-19 10:00:00 INFO [workflow-manager] Job #3 (filter) - stage started",
		"    - Correlation ID: abc",
		"2026-10-19 10:00:01 INFO [workflow-manager] Job #4 - job completed",
		"2026-10-19 10:00:02 INFO [workflow-manager] Job #3 - job completed",
	}, "\n") + "\n"
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--job", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "Job #4") || strings.Count(out, "Job #3") != 2 {
		t.Fatalf("unexpected filtered logs:\n%s", out)
	}
	requireContains(t, out, "Correlation ID: abc")

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.TrimSpace(out) != "2026-10-19 10:00:02 INFO [workflow-manager] Job #3 - job completed" {
		t.Fatalf("unexpected last line %q", out)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"token"}, env.configPath); err == nil {
		t.Fatal("expected token without a jwt secret to fail")
	}

	t.Setenv("CLIPFORGE_JWT_SECRET", strings.Repeat("k", 32))
	out, _, err := runCLI(t, []string{"token", "--ttl", "1m"}, env.configPath)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("expected a compact JWS, got %q", out)
	}
}

func TestRenderTableShortensLongCells(t *testing.T) {
	output := "/srv/clipforge/output/job-12/subtitled_20260101_120000_deadbeef.mp4"
	out := renderTable([]column{
		{header: "ID", numeric: true},
		{header: "Output", maxWidth: 30, path: true},
		{header: "Message", maxWidth: 12},
	}, [][]string{{"12", output, "ffmpeg exited with status 1"}})

	requireContains(t, out, "ID")
	requireContains(t, out, "...")
	if strings.Contains(out, "/srv/clipforge") {
		t.Fatalf("expected path shortened from the left:\n%s", out)
	}
	requireContains(t, out, "ffmpeg ex...")

	if got := shortenPath(output, 50); !strings.HasSuffix(got, "job-12/subtitled_20260101_120000_deadbeef.mp4") || len([]rune(got)) != 50 {
		t.Fatalf("shortenPath kept %q", got)
	}
	if got := shortenPath("short.mp4", 40); got != "short.mp4" {
		t.Fatalf("expected short path unchanged, got %q", got)
	}
}

func TestExitCodeFollowsErrorMarkers(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("job 4: %w", jobs.ErrNotProcessable), exitConflict},
		{jobs.ErrNotFound, exitNotFound},
		{&apiError{Status: 404, Message: "job not found"}, exitNotFound},
		{&apiError{Status: 409, Message: "job not processable"}, exitConflict},
		{&apiError{Status: 503, Message: "workflow queue full"}, exitTempFailure},
		{&apiError{Status: 500, Message: "boom"}, exitFailure},
		{services.Wrap(services.ErrValidation, "job", "create", "source_video_path is required", nil), exitInvalid},
		{context.Canceled, exitInterrupted},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
