package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPFORGE_API_TOKEN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "clipforge", "projects")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "clipforge", "state", "clipforge.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Publish.Backend != "none" {
		t.Fatalf("expected publishing disabled by default, got %q", cfg.Publish.Backend)
	}
	if cfg.Jobs.MaxSubtitleChars != 5000 {
		t.Fatalf("unexpected subtitle limit: %d", cfg.Jobs.MaxSubtitleChars)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected engine binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if !cfg.Workflow.ReconcileOnStart {
		t.Fatal("expected reconcile_on_start enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipforge.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Workflow struct {
			Workers           int `toml:"workers"`
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "renders")
	custom.Workflow.Workers = 6
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "renders") {
		t.Fatalf("expected output dir from file, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Workflow.Workers != 6 {
		t.Fatalf("expected 6 workers, got %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadAppliesEnvFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipforge.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\napi_bind = \"127.0.0.1:9999\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envBody := "CLIPFORGE_API_TOKEN=from-env-file\n"
	if err := os.WriteFile(filepath.Join(tempDir, "clipforge.env"), []byte(envBody), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CLIPFORGE_API_TOKEN", "")
	os.Unsetenv("CLIPFORGE_API_TOKEN")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "from-env-file" {
		t.Fatalf("expected token from env file, got %q", cfg.Paths.APIToken)
	}
	if cfg.Paths.APIBind != "127.0.0.1:9999" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
}

func TestConfigFileWinsOverEnvFallback(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipforge.toml")
	body := "[paths]\napi_token = \"file-token\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CLIPFORGE_API_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "file-token" {
		t.Fatalf("expected token from file, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "clipforge") {
		t.Fatalf("expected output dir to contain clipforge, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Publish.Backend != "none" {
		t.Fatalf("expected sample publish backend none, got %q", cfg.Publish.Backend)
	}
	if cfg.Notifications.RequestTimeout != 10 {
		t.Fatalf("expected sample ntfy timeout 10, got %d", cfg.Notifications.RequestTimeout)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Publish.Backend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown publish backend")
	}

	cfg = config.Default()
	cfg.Publish.Backend = "s3"
	cfg.Publish.Bucket = "renders"
	cfg.Publish.Region = "us-east-1"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when s3 credentials missing")
	}

	cfg = config.Default()
	cfg.Publish.Backend = "gcs"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when gcs bucket missing")
	}

	cfg = config.Default()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short jwt secret")
	}

	cfg = config.Default()
	cfg.Notifications.NtfyTopic = "my-topic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bare ntfy topic")
	}
}
