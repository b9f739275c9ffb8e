// Package analytics records product events such as handled conversation
// messages and ingested transactions.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dompet/internal/amqp"
	applog "dompet/internal/log"
)

const (
	EventConversationMessage  = "conversation_message"
	EventTransactionsIngested = "transactions_ingested"
)

type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps a fresh id and the current UTC time.
func NewEvent(userID, name string, props map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		Properties: props,
		OccurredAt: time.Now().UTC(),
	}
}

// Tracker receives analytics events.
type Tracker interface {
	Track(ctx context.Context, e Event) error
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Track(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// LogTracker only writes events to the log. Used when no broker is configured.
type LogTracker struct {
	logger *applog.Logger
}

func NewLogTracker(logger *applog.Logger) *LogTracker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &LogTracker{logger: logger.WithComponent(applog.ComponentAnalytics)}
}

func (t *LogTracker) Track(ctx context.Context, e Event) error {
	t.logger.InfoContext(ctx, "Analytics event",
		applog.FieldEventID, e.ID,
		applog.FieldEventName, e.Name,
		applog.FieldUserID, e.UserID,
		"properties", e.Properties)
	return nil
}

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg *amqp.EventMessage) error
}

// Publisher forwards events to a message broker.
type Publisher struct {
	pub EventPublisher
}

func NewPublisher(pub EventPublisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Track(ctx context.Context, e Event) error {
	if err := p.pub.PublishEvent(ctx, ToMessage(e)); err != nil {
		return fmt.Errorf("publish event %s: %w", e.Name, err)
	}
	return nil
}

func ToMessage(e Event) *amqp.EventMessage {
	return &amqp.EventMessage{
		ID:         e.ID,
		UserID:     e.UserID,
		Name:       e.Name,
		Properties: e.Properties,
		OccurredAt: e.OccurredAt,
	}
}

func FromMessage(m *amqp.EventMessage) Event {
	return Event{
		ID:         m.ID,
		UserID:     m.UserID,
		Name:       m.Name,
		Properties: m.Properties,
		OccurredAt: m.OccurredAt,
	}
}
