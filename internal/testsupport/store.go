package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a draft job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, spec jobs.Spec) *jobs.Job {
	t.Helper()

	if spec.SourceVideoPath == "" {
		spec.SourceVideoPath = "/videos/source.mp4"
	}
	job, err := store.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
