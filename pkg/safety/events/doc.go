// Package events stores the append-only safety event log.
//
// # Overview
//
// Every non-safe verdict is recorded as a safety.Event. Events are never
// deleted; the only mutation after creation is Resolve, which sets the
// resolved flag. Three backends implement Log:
//
//   - Memory: process-lifetime slice (default)
//   - SQLite: single-file persistence
//   - PostgreSQL: shared persistence for multi-instance deployments
//
// # Querying
//
//	recent, err := log.Recent(ctx, 10)
//	critical, err := log.Query(ctx, &events.Query{MinLevel: safety.LevelCritical})
//	summary, err := log.Summary(ctx)
//
// Summary always carries every level and intervention key, with zero counts
// where no event used them.
package events
