package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// GCSPublisher uploads outputs to a Google Cloud Storage bucket.
type GCSPublisher struct {
	bucket     string
	publicBase string
	client     *storage.Client
	logger     *slog.Logger
}

// NewGCS constructs a GCS publisher. Without a credentials file the client
// falls back to application default credentials.
func NewGCS(ctx context.Context, cfg config.Publish, logger *slog.Logger) (*GCSPublisher, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "gcs client", "", err)
	}
	return &GCSPublisher{
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "publish-gcs"),
	}, nil
}

// Name identifies the backend.
func (p *GCSPublisher) Name() string { return "gcs" }

// Publish streams localPath into the bucket under key.
func (p *GCSPublisher) Publish(ctx context.Context, localPath, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "publish", "open output", localPath, err)
	}
	defer file.Close()

	writer := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "video/mp4"
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return "", services.Wrap(services.ErrTransient, "publish", "gcs upload", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "gcs finalize",
			fmt.Sprintf("object %s in bucket %s", key, p.bucket), err)
	}

	url := objectURL(p.publicBase, "gs", p.bucket, key)
	logging.WithContext(ctx, p.logger).Info("output published",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.String("url", url),
	)
	return url, nil
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
