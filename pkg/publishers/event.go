package publishers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents the payload published downstream: one successful upstream
// call and its verbatim result.
type Event struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	SportKey  string            `json:"sport_key,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Usage     map[string]string `json:"usage,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// NewEvent constructs an Event with a fresh id.
func NewEvent(operation, sportKey string, payload json.RawMessage, fetchedAt time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Operation: operation,
		SportKey:  sportKey,
		Payload:   payload,
		FetchedAt: fetchedAt.UTC(),
	}
}

// attributes are the routing hints copied onto broker message metadata.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"event_id":  e.ID,
		"operation": e.Operation,
	}
	if e.SportKey != "" {
		attrs["sport_key"] = e.SportKey
	}
	return attrs
}
