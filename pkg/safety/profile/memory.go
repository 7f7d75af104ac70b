package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/vigil/pkg/safety"
)

// MemoryStore keeps profiles in a map for the lifetime of the process.
// Profiles are copied on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*safety.Profile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*safety.Profile)}
}

// Get returns a copy of the stored profile.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*safety.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profiles[userID].Clone(), nil
}

// Upsert stores a copy of p.
func (s *MemoryStore) Upsert(ctx context.Context, p *safety.Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if p.UserID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = p.Clone()
	return nil
}

// List returns copies of all profiles ordered by user id.
func (s *MemoryStore) List(ctx context.Context) ([]*safety.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*safety.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Delete removes a profile.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

// Cleanup removes profiles last updated before olderThan.
func (s *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, p := range s.profiles {
		if p.UpdatedAt.Before(olderThan) {
			delete(s.profiles, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
