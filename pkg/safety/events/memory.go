package events

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/vigil/pkg/safety"
)

// MemoryLog keeps events in insertion order for the lifetime of the process.
type MemoryLog struct {
	mu     sync.RWMutex
	events []*safety.Event
	index  map[string]int
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{index: make(map[string]int)}
}

// Append stores a copy of e.
func (l *MemoryLog) Append(ctx context.Context, e *safety.Event) error {
	if e == nil || e.ID == "" {
		return NewStorageError("memory", "append", fmt.Errorf("event must have an id"))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[e.ID]; exists {
		return NewStorageError("memory", "append", fmt.Errorf("event %s already recorded", e.ID))
	}
	l.index[e.ID] = len(l.events)
	l.events = append(l.events, e.Clone())
	return nil
}

// Get returns a copy of one event.
func (l *MemoryLog) Get(ctx context.Context, id string) (*safety.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.events[i].Clone(), nil
}

// Recent returns up to n events, newest first.
func (l *MemoryLog) Recent(ctx context.Context, n int) ([]*safety.Event, error) {
	return l.Query(ctx, &Query{Limit: n})
}

// Query returns matching events, newest first.
func (l *MemoryLog) Query(ctx context.Context, q *Query) ([]*safety.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*safety.Event
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if !q.Matches(e) {
			continue
		}
		out = append(out, e.Clone())
		if q != nil && q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Summary counts every event.
func (l *MemoryLog) Summary(ctx context.Context) (*Summary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := NewSummary()
	for _, e := range l.events {
		s.Add(e)
	}
	return s, nil
}

// Resolve marks an event resolved.
func (l *MemoryLog) Resolve(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return ErrNotFound
	}
	l.events[i].Resolved = true
	return nil
}

// Len returns the number of events.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Close is a no-op.
func (l *MemoryLog) Close() error {
	return nil
}
