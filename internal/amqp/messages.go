package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventMessage is the wire form of an analytics event
type EventMessage struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a message. Messages without an id or a name
// are rejected so the consumer can dead-letter them.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.Name == "" {
		return nil, errors.New("event message missing id or name")
	}
	return &msg, nil
}
