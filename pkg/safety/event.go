package safety

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the engine.
const (
	EventTypeCrisisDetected     = "crisis_detected"
	EventTypeSessionConcern     = "meditation_session_concern"
	EventTypeInteractionConcern = "interaction_concern"
)

// Event records a non-safe verdict. Events are never deleted; only the
// Resolved flag changes after creation.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         string         `json:"event_type"`
	Level        Level          `json:"severity"`
	Description  string         `json:"description"`
	UserID       string         `json:"user_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	Intervention Intervention   `json:"intervention"`
	Resolved     bool           `json:"resolved"`
}

// NewEvent creates an event with a fresh ID and the current UTC timestamp.
func NewEvent(eventType string, level Level, intervention Intervention, description string) *Event {
	return &Event{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Type:         eventType,
		Level:        level,
		Description:  description,
		Intervention: intervention,
		Context:      make(map[string]any),
	}
}

// Clone returns a copy of the event. The context map is copied one level deep.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Context != nil {
		c.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			c.Context[k] = v
		}
	}
	return &c
}
