// Package events publishes domain events to a message broker. Publishing is
// best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const SignupAccepted = "signup.accepted"

// Event is the envelope written to every broker.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// NewEvent stamps a fresh id and UTC timestamp.
func NewEvent(eventType string, data map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func (e Event) validate() error {
	if e.Type == "" {
		return errors.New("events: event type required")
	}
	return nil
}

func (e Event) encode() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Ping(ctx context.Context) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Ping(context.Context) error           { return nil }
func (NopPublisher) Close() error                         { return nil }

// IsNop reports whether p is the discard publisher.
func IsNop(p Publisher) bool {
	if p == nil {
		return true
	}
	_, ok := p.(NopPublisher)
	return ok
}
