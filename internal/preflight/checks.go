package preflight

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipforge/internal/config"
	"clipforge/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFFmpegVersion runs "<binary> -version" and reports the first line.
func CheckFFmpegVersion(ctx context.Context, binary string) Result {
	const name = "FFmpeg"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(checkCtx, path, "-version").Output()
	if err != nil {
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			return Result{Name: name, Detail: "version check timed out"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("version check failed (%v)", err)}
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return Result{Name: name, Passed: true, Detail: line}
		}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckPublishTarget validates the publish configuration without contacting
// the remote backend.
func CheckPublishTarget(cfg config.Publish) Result {
	const name = "Publish"

	switch cfg.Backend {
	case "", "none":
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	case "s3":
		if cfg.Bucket == "" || cfg.Region == "" {
			return Result{Name: name, Detail: "s3 bucket and region are required"}
		}
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return Result{Name: name, Detail: "s3 credentials missing"}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("s3://%s (%s)", cfg.Bucket, cfg.Region)}
	case "gcs":
		if cfg.Bucket == "" {
			return Result{Name: name, Detail: "gcs bucket is required"}
		}
		if cfg.CredentialsFile != "" {
			if err := unix.Access(cfg.CredentialsFile, unix.R_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: credentials unreadable: %v)", cfg.CredentialsFile, err)}
			}
		}
		return Result{Name: name, Passed: true, Detail: "gs://" + cfg.Bucket}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// CheckSystemDeps evaluates the media binaries for cfg. Both the daemon status
// endpoint and the CLI check command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaRequirements(cfg))
}
