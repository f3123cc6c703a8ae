package publish

// NewS3WithUploader exposes S3Publisher construction with a fake uploader.
func NewS3WithUploader(bucket, publicBase string, uploader s3Uploader) *S3Publisher {
	return &S3Publisher{bucket: bucket, publicBase: publicBase, uploader: uploader, logger: nil}
}
