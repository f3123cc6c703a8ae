package history_test

import (
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "events"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListForJob(t *testing.T) {
	store := openStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	events := []history.Event{
		{JobID: 1, Type: history.EventAccepted, Timestamp: ts},
		{JobID: 2, Type: history.EventAccepted, Timestamp: ts},
		{JobID: 1, Type: history.EventStageStarted, Stage: "audio", Timestamp: ts},
		{JobID: 1, Type: history.EventCompleted, Message: "/out/final.mp4"},
		{JobID: 10, Type: history.EventFailed},
	}
	for _, ev := range events {
		if err := store.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.ListForJob(1)
	if err != nil {
		t.Fatalf("ListForJob: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events for job 1, got %d: %#v", len(got), got)
	}
	want := []history.EventType{history.EventAccepted, history.EventStageStarted, history.EventCompleted}
	for i, ev := range got {
		if ev.Type != want[i] {
			t.Fatalf("event %d: got %s want %s", i, ev.Type, want[i])
		}
	}
	if got[1].Stage != "audio" {
		t.Fatalf("expected stage preserved, got %#v", got[1])
	}
	if got[2].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled in")
	}
}

func TestDeleteJob(t *testing.T) {
	store := openStore(t)
	for _, id := range []int64{3, 3, 4} {
		if err := store.Record(history.Event{JobID: id, Type: history.EventCreated}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.DeleteJob(3); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if got, _ := store.ListForJob(3); len(got) != 0 {
		t.Fatalf("expected job 3 events removed, got %d", len(got))
	}
	if got, _ := store.ListForJob(4); len(got) != 1 {
		t.Fatalf("expected job 4 untouched, got %d", len(got))
	}
}

func TestClosedStore(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "events"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Record(history.Event{JobID: 1}); err != history.ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
