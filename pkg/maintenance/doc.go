// Package maintenance runs scheduled housekeeping jobs against the profile
// store and the event log.
//
// Two jobs are available, each with its own cron schedule:
//
//   - profile eviction removes risk profiles that have not been updated
//     for longer than the configured idle period
//   - event archive exports the full event log to a timestamped file
//
// Eviction runs through the engine's profile.Updater and holds the locks of
// the users it removes, so it never discards a profile mid-interaction.
//
// Jobs can also be run directly, which is what the CLI and tests do.
package maintenance
