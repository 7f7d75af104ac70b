package profile

import (
	"context"
	"fmt"
	"slices"
	"time"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
)

// Counter counts catalog matches in text. *catalog.Catalog implements it.
type Counter interface {
	Count(category catalog.Category, text string) int
}

// Observation is one user input applied to a profile.
type Observation struct {
	Profile              *safety.Profile
	VulnerabilityMatches int
	DependencyMatches    int

	// Loaded is false when the stored profile could not be read and Profile
	// is a fresh stand-in. Such a profile must never be saved.
	Loaded bool
}

// Updater applies read-modify-write changes to profiles under a per-user lock.
type Updater struct {
	store Store
	locks *KeyedMutex
	now   func() time.Time
}

// NewUpdater creates an updater. A nil locks creates a private KeyedMutex.
func NewUpdater(store Store, locks *KeyedMutex) *Updater {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Updater{store: store, locks: locks, now: time.Now}
}

// Store returns the underlying store.
func (u *Updater) Store() Store {
	return u.store
}

// Lock holds the lock for userID until the returned function is called.
// Callers use it to group several updates into one critical section.
func (u *Updater) Lock(userID string) func() {
	return u.locks.Lock(userID)
}

// Load returns the profile for userID, creating an unsaved one if absent.
// The caller must hold the user's lock.
func (u *Updater) Load(ctx context.Context, userID string) (*safety.Profile, error) {
	return u.load(ctx, userID, u.now().UTC())
}

func (u *Updater) load(ctx context.Context, userID string, now time.Time) (*safety.Profile, error) {
	p, err := u.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if p == nil {
		p = safety.NewProfile(userID, now)
	}
	return p, nil
}

// Save persists p. The caller must hold the user's lock.
func (u *Updater) Save(ctx context.Context, p *safety.Profile) error {
	if err := u.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Apply loads the profile for userID and applies input to it at now without
// saving. The caller must hold the user's lock.
//
// When the load fails the input is applied to a fresh profile, returned
// with Loaded false alongside the error.
func (u *Updater) Apply(ctx context.Context, c Counter, userID, input string, now time.Time) (*Observation, error) {
	obs := &Observation{
		VulnerabilityMatches: c.Count(catalog.CategoryVulnerability, input),
		DependencyMatches:    c.Count(catalog.CategoryDependency, input),
	}
	p, err := u.load(ctx, userID, now)
	if err != nil {
		p = safety.NewProfile(userID, now)
	} else {
		obs.Loaded = true
	}
	p.Observe(obs.VulnerabilityMatches, obs.DependencyMatches, now)
	obs.Profile = p
	return obs, err
}

// Commit saves an observed profile. A profile that was not loaded is left
// unsaved so the stored tier and crisis history survive a failed read.
// The caller must hold the user's lock.
func (u *Updater) Commit(ctx context.Context, obs *Observation) error {
	if !obs.Loaded {
		return nil
	}
	return u.Save(ctx, obs.Profile)
}

// Update applies one user input to the profile for userID and saves it,
// all under the user's lock: the interaction counter increments, distress
// and dependency grow by the vulnerability and dependency match counts and
// the tier is raised if the scores call for it. The returned profile is a
// copy and is returned even when persisting fails.
func (u *Updater) Update(ctx context.Context, c Counter, userID, input string) (*safety.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	unlock := u.Lock(userID)
	defer unlock()

	obs, err := u.Apply(ctx, c, userID, input, u.now().UTC())
	if err != nil {
		return obs.Profile.Clone(), err
	}
	if err := u.Commit(ctx, obs); err != nil {
		return obs.Profile.Clone(), err
	}
	return obs.Profile.Clone(), nil
}

// Evict removes profiles not updated since cutoff and returns how many were
// removed. The locks of every idle user are held while the store is
// cleaned, so an in-flight interaction either saves first, refreshing the
// profile, or starts after it is gone.
func (u *Updater) Evict(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := u.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	var idle []string
	for _, p := range all {
		if p.UpdatedAt.Before(cutoff) {
			idle = append(idle, p.UserID)
		}
	}
	if len(idle) == 0 {
		return 0, nil
	}

	// Fixed order so overlapping evictions cannot deadlock.
	slices.Sort(idle)
	for _, id := range idle {
		unlock := u.Lock(id)
		defer unlock()
	}

	removed, err := u.store.Cleanup(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("failed to clean up profiles: %w", err)
	}
	return removed, nil
}
