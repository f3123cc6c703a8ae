// Package publish copies completed job outputs to object storage.
//
// Backends: "none" (disabled), "s3" (AWS SDK v2 multipart uploader with
// static credentials) and "gcs" (Cloud Storage client with a service
// account file or application default credentials). A publish failure never
// changes a job's outcome; callers log it and keep the local output.
package publish
