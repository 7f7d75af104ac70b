// Package profile stores per-user risk profiles.
//
// # Overview
//
// Store is the persistence abstraction for safety.Profile values. Three
// backends are provided:
//
//   - Memory: process-lifetime map (default)
//   - SQLite: single-file persistence across restarts
//   - Redis: shared storage for multi-instance deployments, with optional TTL
//
// # Updates
//
// Updater performs the read-modify-write cycle for one interaction while
// holding a per-user lock from KeyedMutex, so concurrent interactions for
// the same user are serialised and different users proceed in parallel:
//
//	updater := profile.NewUpdater(store, locks)
//	p, err := updater.Update(ctx, catalog.Default(), "user-1", "I feel so lonely")
//
// The engine groups several steps in one critical section with Lock, Apply
// and Commit. When the stored profile cannot be read, Apply returns the
// error together with a fresh stand-in that Commit refuses to save, so a
// transient store error cannot lower a user's tier or drop crisis history.
// Evict removes idle profiles while holding the affected users' locks.
package profile
