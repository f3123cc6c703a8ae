package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

func TestFromJobFormatsTimestampsAndProgress(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	heartbeat := created.Add(time.Minute)
	job := &jobs.Job{
		ID:            7,
		Name:          "clip",
		Status:        jobs.StatusProcessing,
		Volume:        80,
		FilterID:      "warm",
		ProgressStage: "audio",
		CorrelationID: "abc",
		LastHeartbeat: &heartbeat,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	dto := api.FromJob(job)
	if dto.Status != "processing" || dto.FilterID != "warm" || dto.Volume != 80 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.CreatedAt != "2026-03-04T05:06:07.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.Progress.Stage != "audio" || dto.Progress.CorrelationID != "abc" {
		t.Fatalf("unexpected progress %+v", dto.Progress)
	}
	if dto.Progress.LastHeartbeat != "2026-03-04T05:07:07.000Z" {
		t.Fatalf("unexpected heartbeat %q", dto.Progress.LastHeartbeat)
	}
	if dto.FinishedAt != "" {
		t.Fatalf("expected empty finishedAt, got %q", dto.FinishedAt)
	}
}

func TestFromStatusSummaryFillsAllStatuses(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:  true,
		Workers:  2,
		Active:   map[int64]string{3: "subtitle"},
		JobStats: map[jobs.Status]int{jobs.StatusDraft: 4},
		StageHealth: []workflow.StageHealth{
			workflow.UnhealthyStage("FFprobe", "missing"),
			workflow.HealthyStage("FFmpeg"),
		},
	}

	status := api.FromStatusSummary(summary)
	if status.JobStats["draft"] != 4 || status.JobStats["failed"] != 0 {
		t.Fatalf("unexpected stats %+v", status.JobStats)
	}
	if _, ok := status.JobStats["completed"]; !ok {
		t.Fatal("expected completed key in stats")
	}
	if status.Active["3"] != "subtitle" {
		t.Fatalf("unexpected active map %+v", status.Active)
	}
	if len(status.StageHealth) != 2 || status.StageHealth[0].Name != "FFmpeg" {
		t.Fatalf("expected sorted stage health, got %+v", status.StageHealth)
	}
}

func TestFilterListIncludesNone(t *testing.T) {
	list := api.FilterList()
	if len(list) == 0 {
		t.Fatal("expected filters")
	}
	found := false
	for _, f := range list {
		if f.ID == "none" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected none filter in %+v", list)
	}
}

func TestParseStatusFilters(t *testing.T) {
	statuses, err := api.ParseStatusFilters([]string{"draft,failed", "draft"})
	if err != nil {
		t.Fatalf("ParseStatusFilters: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != jobs.StatusDraft || statuses[1] != jobs.StatusFailed {
		t.Fatalf("unexpected statuses %v", statuses)
	}
	if _, err := api.ParseStatusFilters([]string{"bogus"}); !errors.Is(err, jobs.ErrInvalidJob) {
		t.Fatalf("expected invalid job error, got %v", err)
	}
}

func TestJobServiceDescribeAndEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	events, err := history.Open(t.TempDir())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = events.Close() })

	job := testsupport.NewJob(t, store, jobs.Spec{Name: "first"})
	if err := events.Record(history.Event{JobID: job.ID, Type: history.EventCreated}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	svc := api.NewJobService(store, events)
	ctx := context.Background()

	dto, err := svc.Describe(ctx, job.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if dto.Name != "first" || dto.Status != "draft" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if _, err := svc.Describe(ctx, job.ID+100); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	resp, err := svc.Events(ctx, job.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != "created" {
		t.Fatalf("unexpected events %+v", resp.Events)
	}

	if _, err := svc.Export(ctx, job.ID); !errors.Is(err, jobs.ErrNotProcessable) {
		t.Fatalf("expected export of draft job to fail, got %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["draft"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
