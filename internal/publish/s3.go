package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// s3Uploader is the subset of manager.Uploader used for publishing.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads outputs to an S3 bucket with static credentials.
type S3Publisher struct {
	bucket     string
	publicBase string
	uploader   s3Uploader
	logger     *slog.Logger
}

// NewS3 constructs an S3 publisher from cfg.
func NewS3(cfg config.Publish, logger *slog.Logger) *S3Publisher {
	client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})
	return &S3Publisher{
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		uploader:   manager.NewUploader(client),
		logger:     logging.NewComponentLogger(logger, "publish-s3"),
	}
}

// Name identifies the backend.
func (p *S3Publisher) Name() string { return "s3" }

// Publish uploads localPath to key.
func (p *S3Publisher) Publish(ctx context.Context, localPath, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "publish", "open output", localPath, err)
	}
	defer file.Close()

	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("video/mp4"),
	}); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "s3 upload",
			fmt.Sprintf("object %s in bucket %s", key, p.bucket), err)
	}

	url := objectURL(p.publicBase, "s3", p.bucket, key)
	logging.WithContext(ctx, p.logger).Info("output published",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.String("url", url),
	)
	return url, nil
}
