package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "clipforge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String("output_path", "/tmp/out.mp4"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	if !strings.Contains(text, "- Output Path: /tmp/out.mp4") {
		t.Fatalf("expected titled field label, got %q", text)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersJobSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(services.WithJobID(context.Background(), 42), "audio")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow")).Info("stage started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"INFO [workflow] Job #42 (audio) - stage started"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, 123)
	ctx = services.WithStage(ctx, "filter")
	ctx = services.WithCorrelationID(ctx, "attempt-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if record["msg"] != "contextual log" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record[logging.FieldJobID] != float64(123) {
		t.Fatalf("field job_id = %v, want 123", record[logging.FieldJobID])
	}
	if record[logging.FieldStage] != "filter" {
		t.Fatalf("field stage = %v, want filter", record[logging.FieldStage])
	}
	if record[logging.FieldCorrelationID] != "attempt-xyz" {
		t.Fatalf("field correlation_id = %v, want attempt-xyz", record[logging.FieldCorrelationID])
	}
}

func TestNewWritesToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")

	text := buf.String()
	if strings.Contains(text, "dropped") {
		t.Fatalf("expected info message filtered, got %q", text)
	}
	if !strings.Contains(text, "kept") {
		t.Fatalf("expected warn message, got %q", text)
	}
}

func TestJSONLoggerFormatsStageFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("stage finished",
		logging.JobID(7),
		logging.Duration("elapsed", 1500*time.Millisecond),
		logging.String("output", ""),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "info" || record["msg"] != "stage finished" {
		t.Fatalf("unexpected envelope %v", record)
	}
	ts, _ := record["ts"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ts); err != nil {
		t.Fatalf("unexpected ts %q: %v", ts, err)
	}
	if record["elapsed"] != "1.5s" {
		t.Fatalf("elapsed = %v, want 1.5s", record["elapsed"])
	}
	if _, ok := record["output"]; ok {
		t.Fatalf("expected empty output field to be dropped, got %v", record)
	}
	if !strings.Contains(buf.String(), `"job_id":7`) {
		t.Fatalf("expected compact job_id for log filtering, got %s", buf.String())
	}
}

func TestWarnWithContextClassifiesErrors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	upload := services.Wrap(services.ErrExternalTool, "publish", "upload", "bucket refused object", nil)
	logging.WarnWithContext(logger, "publish failed", "publish_failed", logging.JobID(4), logging.Error(upload))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record[logging.FieldEventType] != "publish_failed" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorKind] != services.ErrExternalTool.Error() {
		t.Fatalf("error_kind = %v, want %q", record[logging.FieldErrorKind], services.ErrExternalTool.Error())
	}
	if hint, _ := record[logging.FieldErrorHint].(string); !strings.Contains(hint, "clipforge logs") {
		t.Fatalf("unexpected default hint %q", hint)
	}
	if record[logging.FieldImpact] == nil {
		t.Fatal("expected default impact field")
	}
}
