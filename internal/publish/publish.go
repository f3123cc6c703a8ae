package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Publisher copies a completed output to shared storage and returns the URL
// it can be fetched from.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// New builds the publisher selected by cfg.Backend. The "none" backend yields
// a nil Publisher.
func New(ctx context.Context, cfg config.Publish, logger *slog.Logger) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "s3":
		return NewS3(cfg, logger), nil
	case "gcs":
		return NewGCS(ctx, cfg, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "publish", "select backend",
			fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}

// ObjectKey derives the storage key for a job output: <prefix>/job-<id>/<file>.
func ObjectKey(prefix string, jobID int64, localPath string) string {
	parts := []string{}
	if trimmed := strings.Trim(prefix, "/"); trimmed != "" {
		parts = append(parts, trimmed)
	}
	parts = append(parts, fmt.Sprintf("job-%d", jobID), filepath.Base(localPath))
	return path.Join(parts...)
}

// objectURL prefers the configured public base URL over the native scheme.
func objectURL(publicBase, scheme, bucket, key string) string {
	if base := strings.TrimRight(strings.TrimSpace(publicBase), "/"); base != "" {
		return base + "/" + key
	}
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, key)
}
