// Package notify publishes posting lifecycle events for downstream
// consumers such as alerting and digest services.
package notify

import (
	"context"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

// Event types emitted on the posting stream.
const (
	EventJobNew     = "job.new"
	EventJobExpired = "job.expired"
	EventJobGhost   = "job.ghost_flagged"
)

// Event is one posting lifecycle notification.
type Event struct {
	Type       string    `json:"type"`
	JobID      string    `json:"job_id"`
	Company    string    `json:"company"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers posting lifecycle events.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds an event from a posting.
func NewEvent(eventType string, p *domain.JobPosting) Event {
	return Event{
		Type:       eventType,
		JobID:      p.ID,
		Company:    p.Company,
		Title:      p.Title,
		OccurredAt: time.Now().UTC(),
	}
}

// Noop is a Notifier that discards events. Used when no broker is
// configured and in tests.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, Event) error { return nil }
