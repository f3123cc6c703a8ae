package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// EventType classifies a recorded job event.
type EventType string

const (
	EventCreated        EventType = "created"
	EventUpdated        EventType = "updated"
	EventAccepted       EventType = "accepted"
	EventStageStarted   EventType = "stage_started"
	EventCompleted      EventType = "completed"
	EventFailed         EventType = "failed"
	EventReclaimed      EventType = "reclaimed"
	EventReset          EventType = "reset"
	EventPublished      EventType = "published"
	EventPublishFailed  EventType = "publish_failed"
	EventCleanupWarning EventType = "cleanup_warning"
)

// Event is one entry in a job's history.
type Event struct {
	JobID         int64     `json:"job_id"`
	Type          EventType `json:"type"`
	Stage         string    `json:"stage,omitempty"`
	Message       string    `json:"message,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Store is an append-only job event log backed by pebble.
type Store struct {
	db   *pebble.DB
	mu   sync.Mutex
	last int64
}

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("history store closed")

// Open opens or creates the event log in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record appends ev. A zero timestamp is replaced with the current time.
func (s *Store) Record(ev Event) error {
	if s == nil {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	// Keys must stay unique when two events share a clock reading.
	nano := ev.Timestamp.UnixNano()
	if nano <= s.last {
		nano = s.last + 1
	}
	s.last = nano

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.db.Set(eventKey(ev.JobID, nano), data, pebble.Sync); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// ListForJob returns the events of a job in recording order.
func (s *Store) ListForJob(jobID int64) ([]Event, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	lower, upper := jobBounds(jobID)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var events []Event
	for iter.First(); iter.Valid(); iter.Next() {
		var ev Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// DeleteJob removes every event of a job.
func (s *Store) DeleteJob(jobID int64) error {
	if s == nil {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	lower, upper := jobBounds(jobID)
	if err := s.db.DeleteRange(lower, upper, pebble.Sync); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

func eventKey(jobID, nano int64) []byte {
	return []byte(fmt.Sprintf("job/%020d/%020d", jobID, nano))
}

func jobBounds(jobID int64) ([]byte, []byte) {
	prefix := fmt.Sprintf("job/%020d/", jobID)
	// '0' sorts directly after '/', so it bounds every key under prefix.
	return []byte(prefix), []byte(prefix[:len(prefix)-1] + "0")
}
