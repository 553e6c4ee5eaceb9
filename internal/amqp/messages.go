package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"autonome/internal/events"
)

// EventMessage is the wire form of a ledger event. The payload is kept raw so
// consumers decode only the kinds they care about.
type EventMessage struct {
	ID         string          `json:"id"`
	Type       events.Type     `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEventMessage encodes e for publishing.
func NewEventMessage(e events.Event) (*EventMessage, error) {
	msg := &EventMessage{
		ID:         e.ID,
		Type:       e.Type,
		OccurredAt: e.OccurredAt.UTC(),
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Record decodes the payload of a record-level event. ok is false for events
// that do not carry a record, such as recurring.pass or ledger.restored.
func (m *EventMessage) Record() (p events.RecordPayload, ok bool, err error) {
	switch m.Type {
	case events.RecurringPass, events.LedgerRestored:
		return p, false, nil
	}
	if len(m.Payload) == 0 {
		return p, false, nil
	}
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return p, false, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return p, true, nil
}

func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("event message without type")
	}
	return &msg, nil
}
