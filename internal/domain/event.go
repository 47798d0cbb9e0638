package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrChannelUnavailable = errors.New("event channel unavailable")
	ErrMalformedEvent     = errors.New("malformed event")
)

// EventType doubles as the stable topic name on the Event Channel.
type EventType string

const (
	EventJobCreated EventType = "job.created"
	EventJobUpdated EventType = "job.updated"
	EventJobDeleted EventType = "job.deleted"
)

func (t EventType) Valid() bool {
	return t == EventJobCreated || t == EventJobUpdated || t == EventJobDeleted
}

// Event is a self-contained snapshot of a committed mutation. Created and
// updated events carry the full job; deleted events carry only the id.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	JobID      string    `json:"jobId"`
	OccurredAt time.Time `json:"occurredAt"`
	Job        *Job      `json:"job,omitempty"`
}

func NewJobCreated(job *Job) *Event {
	return newEvent(EventJobCreated, job.ID, job.Clone(), job.UpdatedAt)
}

func NewJobUpdated(job *Job) *Event {
	return newEvent(EventJobUpdated, job.ID, job.Clone(), job.UpdatedAt)
}

func NewJobDeleted(id string, at time.Time) *Event {
	return newEvent(EventJobDeleted, id, nil, at)
}

func newEvent(t EventType, jobID string, job *Job, at time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		JobID:      jobID,
		OccurredAt: at.UTC(),
		Job:        job,
	}
}

// Validate checks the shape an indexer relies on.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	if e.JobID == "" {
		return fmt.Errorf("%w: missing job id", ErrMalformedEvent)
	}
	if e.Type != EventJobDeleted {
		if e.Job == nil {
			return fmt.Errorf("%w: %s without job snapshot", ErrMalformedEvent, e.Type)
		}
		if e.Job.ID != e.JobID {
			return fmt.Errorf("%w: job id mismatch", ErrMalformedEvent)
		}
	}
	return nil
}

// EventHandler processes one delivered event. A nil return acknowledges it.
type EventHandler func(ctx context.Context, evt Event) error

// EventPublisher is the producer side of the Event Channel. Publish returns
// only once the event is durably enqueued.
type EventPublisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// EventSubscriber is the consumer side. Subscribe blocks until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// OutboxRecord is an event persisted alongside its mutation.
type OutboxRecord struct {
	Event       Event
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
}

type OutboxRepository interface {
	FetchPending(ctx context.Context, olderThan time.Time, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, cause error) error
	PurgePublished(ctx context.Context, before time.Time) (int64, error)
}
