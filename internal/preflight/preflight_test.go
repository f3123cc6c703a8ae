package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFFmpegVersion(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg-stub")
	script := "#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) the FFmpeg developers'\necho 'built with gcc'\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	result := CheckFFmpegVersion(context.Background(), bin)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.HasPrefix(result.Detail, "ffmpeg version 7.1") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckFFmpegVersion_Missing(t *testing.T) {
	result := CheckFFmpegVersion(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckPublishTarget(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Publish
		pass bool
	}{
		{name: "none", cfg: config.Publish{Backend: "none"}, pass: true},
		{name: "s3 ok", cfg: config.Publish{Backend: "s3", Bucket: "b", Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s"}, pass: true},
		{name: "s3 no creds", cfg: config.Publish{Backend: "s3", Bucket: "b", Region: "us-east-1"}},
		{name: "gcs no bucket", cfg: config.Publish{Backend: "gcs"}},
		{name: "gcs unreadable credentials", cfg: config.Publish{Backend: "gcs", Bucket: "b", CredentialsFile: "/nonexistent/creds.json"}},
		{name: "unknown", cfg: config.Publish{Backend: "ftp"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckPublishTarget(tc.cfg)
			if result.Passed != tc.pass {
				t.Fatalf("expected passed=%v, got %+v", tc.pass, result)
			}
		})
	}
}

func TestRunAllReportsMissingDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	failed := Failed(results)
	if len(failed) == 0 {
		t.Fatal("expected failures before directories exist")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, r := range Failed(RunAll(context.Background(), cfg)) {
		if strings.Contains(r.Name, "directory") {
			t.Fatalf("unexpected directory failure after creation: %+v", r)
		}
	}
}
