package events

import (
	"context"
	"time"

	"mercator-hq/vigil/pkg/safety"
)

// Log is an append-only store of safety events.
// Implementations must be safe for concurrent use.
type Log interface {
	// Append records a new event. The event must have an ID.
	Append(ctx context.Context, e *safety.Event) error

	// Get returns one event or ErrNotFound.
	Get(ctx context.Context, id string) (*safety.Event, error)

	// Recent returns up to n events, newest first.
	Recent(ctx context.Context, n int) ([]*safety.Event, error)

	// Query returns events matching q, newest first.
	Query(ctx context.Context, q *Query) ([]*safety.Event, error)

	// Summary returns aggregate counts over every event.
	Summary(ctx context.Context) (*Summary, error)

	// Resolve marks an event resolved. Resolving twice is not an error.
	Resolve(ctx context.Context, id string) error

	// Close releases resources held by the log.
	Close() error
}

// Query filters events. Zero-valued fields do not filter.
type Query struct {
	UserID    string
	SessionID string
	Type      string

	// MinLevel keeps events at least this severe.
	MinLevel safety.Level

	Since time.Time
	Until time.Time

	// Resolved filters on the resolved flag when set.
	Resolved *bool

	// Limit caps the result size. Zero means no limit.
	Limit int
}

// Matches reports whether e satisfies q.
func (q *Query) Matches(e *safety.Event) bool {
	if q == nil {
		return true
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if !e.Level.AtLeast(q.MinLevel) {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.Timestamp.Before(q.Until) {
		return false
	}
	if q.Resolved != nil && e.Resolved != *q.Resolved {
		return false
	}
	return true
}

// Summary aggregates the event log.
type Summary struct {
	Total          int                         `json:"total_events"`
	Unresolved     int                         `json:"unresolved_events"`
	ByLevel        map[safety.Level]int        `json:"by_severity"`
	ByIntervention map[safety.Intervention]int `json:"by_intervention"`
}

// NewSummary returns a summary with every level and intervention at zero.
func NewSummary() *Summary {
	s := &Summary{
		ByLevel:        make(map[safety.Level]int, len(safety.Levels())),
		ByIntervention: make(map[safety.Intervention]int, len(safety.Interventions())),
	}
	for _, l := range safety.Levels() {
		s.ByLevel[l] = 0
	}
	for _, i := range safety.Interventions() {
		s.ByIntervention[i] = 0
	}
	return s
}

// Add counts one event.
func (s *Summary) Add(e *safety.Event) {
	s.Total++
	if !e.Resolved {
		s.Unresolved++
	}
	s.ByLevel[e.Level]++
	s.ByIntervention[e.Intervention]++
}

// AtLeast returns how many events are at least as severe as level.
func (s *Summary) AtLeast(level safety.Level) int {
	n := 0
	for l, count := range s.ByLevel {
		if l.AtLeast(level) {
			n += count
		}
	}
	return n
}
